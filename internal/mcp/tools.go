package mcp

// Tool limits.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// SearchInput is the input schema of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SearchOutput is the output schema of the search tool.
type SearchOutput struct {
	Results []ResultOutput `json:"results" jsonschema:"merged results ordered by relevance"`
	Total   int            `json:"total" jsonschema:"number of results before the limit"`
}

// ResultOutput is one merged result.
type ResultOutput struct {
	Provider  string         `json:"provider" jsonschema:"identifier of the provider that produced the result"`
	Title     string         `json:"title,omitempty" jsonschema:"display title"`
	Kind      string         `json:"kind,omitempty" jsonschema:"result kind, e.g. file, application, calculation"`
	Relevance float64        `json:"relevance" jsonschema:"provider-assigned relevance"`
	Fields    map[string]any `json:"fields,omitempty" jsonschema:"remaining provider-defined fields"`
}

// ListProvidersInput is the input schema of the list_providers tool.
type ListProvidersInput struct {
	Descriptions bool `json:"descriptions,omitempty" jsonschema:"include short and long descriptions"`
}

// ListProvidersOutput is the output schema of the list_providers tool.
type ListProvidersOutput struct {
	Providers []ProviderOutput `json:"providers" jsonschema:"loaded providers in load order"`
}

// ProviderOutput describes one loaded provider.
type ProviderOutput struct {
	ID    string `json:"id"`
	Short string `json:"short,omitempty"`
	Long  string `json:"long,omitempty"`
}

// RefreshInput is the input schema of the refresh tool.
type RefreshInput struct {
	Force bool `json:"force,omitempty" jsonschema:"rebuild provider indexes from scratch"`
}

// RefreshOutput is the output schema of the refresh tool.
type RefreshOutput struct {
	Providers  []string `json:"providers" jsonschema:"providers that were refreshed"`
	Force      bool     `json:"force"`
	DurationMS int64    `json:"duration_ms"`
}
