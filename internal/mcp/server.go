package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/indelve/indelve/pkg/orchestrator"
	"github.com/indelve/indelve/pkg/provider"
	"github.com/indelve/indelve/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "indelve"

// Engine is the orchestrator surface the server needs.
type Engine interface {
	Search(ctx context.Context, query string) ([]provider.Item, error)
	Refresh(ctx context.Context, force bool) error
	ListProviders() []string
	ProviderDescriptions() (map[string]provider.Description, error)
	Order() orchestrator.Order
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Search every loaded provider (files, applications, calculator, ...) and return one list of results merged by relevance.",
	},
	{
		Name:        "list_providers",
		Description: "List the loaded search providers in load order, optionally with their descriptions.",
	},
	{
		Name:        "refresh",
		Description: "Re-synchronise provider indexes with their data sources. Set force to rebuild from scratch.",
	},
}

// Server is the MCP server.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	logger *slog.Logger
}

// NewServer creates a server over engine. A nil logger uses slog.Default().
func NewServer(engine Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		logger: logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version.Version},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpListProvidersHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpRefreshHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name with JSON-style arguments. It is the
// transport-independent entry point used by the SDK handlers and tests.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleSearch(ctx, in)
	case "list_providers":
		var in ListProvidersInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleListProviders(in)
	case "refresh":
		var in RefreshInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleRefresh(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, into any) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) handleSearch(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	limit := clampLimit(in.Limit, DefaultLimit, 1, MaxLimit)

	start := time.Now()
	requestID := generateRequestID()

	items, err := s.engine.Search(ctx, in.Query)
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	top := orchestrator.Top(items, limit, s.engine.Order())
	out := SearchOutput{Total: len(items), Results: make([]ResultOutput, 0, len(top))}
	for _, item := range top {
		out.Results = append(out.Results, ToResultOutput(item))
	}

	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.Int("results", out.Total),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Server) handleListProviders(in ListProvidersInput) (ListProvidersOutput, error) {
	ids := s.engine.ListProviders()
	out := ListProvidersOutput{Providers: make([]ProviderOutput, 0, len(ids))}

	var descs map[string]provider.Description
	if in.Descriptions {
		var err error
		descs, err = s.engine.ProviderDescriptions()
		if err != nil {
			s.logger.Warn("mcp_descriptions_incomplete", slog.String("error", err.Error()))
		}
	}

	for _, id := range ids {
		p := ProviderOutput{ID: id}
		if d, ok := descs[id]; ok {
			p.Short, p.Long = d.Short, d.Long
		}
		out.Providers = append(out.Providers, p)
	}
	return out, nil
}

func (s *Server) handleRefresh(ctx context.Context, in RefreshInput) (RefreshOutput, error) {
	start := time.Now()
	if err := s.engine.Refresh(ctx, in.Force); err != nil {
		s.logger.Error("mcp_refresh_failed", slog.String("error", err.Error()))
		return RefreshOutput{}, MapError(err)
	}
	return RefreshOutput{
		Providers:  s.engine.ListProviders(),
		Force:      in.Force,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	out, err := s.handleSearch(ctx, in)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return textResult(FormatResults(in.Query, out)), out, nil
}

func (s *Server) mcpListProvidersHandler(_ context.Context, _ *mcp.CallToolRequest, in ListProvidersInput) (*mcp.CallToolResult, ListProvidersOutput, error) {
	out, err := s.handleListProviders(in)
	if err != nil {
		return nil, ListProvidersOutput{}, err
	}
	return textResult(FormatProviders(out)), out, nil
}

func (s *Server) mcpRefreshHandler(ctx context.Context, _ *mcp.CallToolRequest, in RefreshInput) (*mcp.CallToolResult, RefreshOutput, error) {
	out, err := s.handleRefresh(ctx, in)
	if err != nil {
		return nil, RefreshOutput{}, err
	}
	return nil, out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// ToResultOutput splits an item into the well-known keys and the rest.
func ToResultOutput(item provider.Item) ResultOutput {
	r, _ := item.Relevance()
	out := ResultOutput{
		Provider:  item.String(provider.KeyProvider),
		Title:     item.String(provider.KeyTitle),
		Kind:      item.String(provider.KeyKind),
		Relevance: r,
	}
	for k, v := range item {
		switch k {
		case provider.KeyProvider, provider.KeyTitle, provider.KeyKind, provider.KeyRelevance:
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string]any)
		}
		out.Fields[k] = v
	}
	return out
}

// Serve runs the server on transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func clampLimit(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	return max(lo, min(v, hi))
}

// generateRequestID creates a short id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func sortedFieldKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
