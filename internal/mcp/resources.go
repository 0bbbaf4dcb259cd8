package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProvidersURI is the resource listing loaded providers and descriptions.
const ProvidersURI = "indelve://providers"

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "providers",
			URI:         ProvidersURI,
			Description: "Loaded search providers with their descriptions",
			MIMEType:    "application/json",
		},
		s.handleProvidersResource,
	)
}

func (s *Server) handleProvidersResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.handleListProviders(ListProvidersInput{Descriptions: true})
	if err != nil {
		return nil, MapError(err)
	}
	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: ProvidersURI, MIMEType: "application/json", Text: string(content)},
		},
	}, nil
}
