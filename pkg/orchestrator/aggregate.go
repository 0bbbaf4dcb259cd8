package orchestrator

import (
	"sort"

	"github.com/indelve/indelve/pkg/provider"
)

// Aggregate concatenates lists in the given order and stable-sorts the
// result by relevance. Items with equal relevance keep their concatenation
// order. Integer relevances are ordered exactly (see provider.RelevanceKey).
// Items are assumed to have passed provider.Item.Validate.
func Aggregate(order Order, lists ...[]provider.Item) []provider.Item {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	merged := make([]provider.Item, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	keys := make([]provider.RelevanceKey, len(merged))
	for i, item := range merged {
		keys[i] = item.RelevanceKey()
	}

	sort.Stable(byRelevance{items: merged, keys: keys, desc: order == OrderDescending})
	return merged
}

// byRelevance sorts items and their precomputed keys together.
type byRelevance struct {
	items []provider.Item
	keys  []provider.RelevanceKey
	desc  bool
}

func (b byRelevance) Len() int { return len(b.items) }

func (b byRelevance) Less(i, j int) bool {
	c := b.keys[i].Compare(b.keys[j])
	if b.desc {
		return c > 0
	}
	return c < 0
}

func (b byRelevance) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// Top keeps the limit most relevant items of a list sorted in order. In
// ascending order they are at the end. limit <= 0 keeps everything.
func Top(items []provider.Item, limit int, order Order) []provider.Item {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	if order == OrderAscending {
		return items[len(items)-limit:]
	}
	return items[:limit]
}
