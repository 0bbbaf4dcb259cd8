package mcp

import (
	"fmt"
	"strings"
)

// FormatResults renders search output as markdown.
func FormatResults(query string, out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Showing %d of %d result", len(out.Results), out.Total)
	if out.Total != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "%d. **%s** `%s` %.3f\n", i+1, title, r.Provider, r.Relevance)
		for _, k := range sortedFieldKeys(r.Fields) {
			fmt.Fprintf(&sb, "   - %s: %v\n", k, r.Fields[k])
		}
	}
	return sb.String()
}

// FormatProviders renders the provider list as markdown.
func FormatProviders(out ListProvidersOutput) string {
	if len(out.Providers) == 0 {
		return "No providers loaded."
	}

	var sb strings.Builder
	sb.WriteString("## Providers\n\n")
	for _, p := range out.Providers {
		if p.Short == "" {
			fmt.Fprintf(&sb, "- `%s`\n", p.ID)
			continue
		}
		fmt.Fprintf(&sb, "- `%s` %s: %s\n", p.ID, p.Short, p.Long)
	}
	return sb.String()
}
