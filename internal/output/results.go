package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/indelve/indelve/pkg/provider"
)

// detailKeys are shown under the title, first present wins.
var detailKeys = []string{"path", "comment", "exec", "value"}

// Items prints search results, numbered in the given order.
func (w *Writer) Items(items []provider.Item) {
	if len(items) == 0 {
		w.Status("", "No results.")
		return
	}

	width := len(fmt.Sprint(len(items)))
	for i, item := range items {
		title := item.String(provider.KeyTitle)
		if title == "" {
			title = item.String("path")
		}
		relevance, _ := item.Relevance()

		_, _ = fmt.Fprintf(w.out, "%*d. %s %s %s\n",
			width, i+1,
			w.styles.Title.Render(title),
			w.styles.Provider.Render("["+item.String(provider.KeyProvider)+"]"),
			w.styles.Score.Render(fmt.Sprintf("%.3f", relevance)),
		)

		for _, k := range detailKeys {
			if v := item.String(k); v != "" && v != title {
				_, _ = fmt.Fprintf(w.out, "%*s  %s\n", width, "", w.styles.Detail.Render(v))
				break
			}
		}
	}
}

// ItemsJSON prints search results as a JSON array.
func (w *Writer) ItemsJSON(items []provider.Item) error {
	if items == nil {
		items = []provider.Item{}
	}
	return w.JSON(items)
}

// ProviderIDs prints one provider id per line.
func (w *Writer) ProviderIDs(ids []string) {
	for _, id := range ids {
		_, _ = fmt.Fprintln(w.out, id)
	}
}

// ProviderDescriptions prints providers in the order of ids with their
// short descriptions; long descriptions are included when long is set.
func (w *Writer) ProviderDescriptions(ids []string, descs map[string]provider.Description, long bool) {
	width := 0
	for _, id := range ids {
		if _, ok := descs[id]; ok {
			width = max(width, len(id))
		}
	}

	for _, id := range ids {
		d, ok := descs[id]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w.out, "%s  %s\n", w.styles.Title.Render(fmt.Sprintf("%-*s", width, id)), d.Short)
		if long {
			for _, line := range strings.Split(d.Long, "\n") {
				_, _ = fmt.Fprintf(w.out, "%-*s  %s\n", width, "", w.styles.Detail.Render(line))
			}
		}
	}
}

// SortedKeys returns the keys of a description map in lexical order.
func SortedKeys(descs map[string]provider.Description) []string {
	keys := make([]string, 0, len(descs))
	for k := range descs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
