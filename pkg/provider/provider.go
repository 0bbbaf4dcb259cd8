package provider

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"

	ierrors "github.com/indelve/indelve/internal/errors"
)

// Well-known item keys.
const (
	// KeyRelevance is the only key every item must carry.
	KeyRelevance = "relevance"
	// KeyProvider names the provider that produced the item.
	KeyProvider = "provider"
	// KeyTitle is the conventional display title.
	KeyTitle = "title"
	// KeyKind is the conventional result kind ("file", "application", ...).
	KeyKind = "kind"
)

// ErrInvalidInput is returned by Search when the query is not applicable to
// the provider. Match it with errors.Is.
var ErrInvalidInput = ierrors.ErrInvalidInput

// ErrUnavailable is returned by a Factory when the provider cannot be loaded
// in this deployment (missing data directories, unsupported platform).
var ErrUnavailable = errors.New("provider unavailable")

// InvalidInput builds an error matching ErrInvalidInput with a reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable builds an error matching ErrUnavailable with a reason.
func Unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// Provider is the capability set every search provider exposes.
type Provider interface {
	// Description returns the provider's static metadata.
	Description() Description

	// Search returns zero or more items for a non-empty query.
	// Returns an error matching ErrInvalidInput if the query does not apply.
	Search(ctx context.Context, query string) ([]Item, error)

	// Refresh re-synchronizes the provider's backing data. force requests a
	// full rebuild instead of an incremental update. Providers without a
	// backing store return nil.
	Refresh(ctx context.Context, force bool) error
}

// Description is a provider's human-readable metadata.
type Description struct {
	Short string `json:"short" yaml:"short"`
	Long  string `json:"long" yaml:"long"`
}

// Validate reports a malformed description. Both entries are required.
func (d Description) Validate() error {
	var missing []string
	if d.Short == "" {
		missing = append(missing, "short")
	}
	if d.Long == "" {
		missing = append(missing, "long")
	}
	if len(missing) == 0 {
		return nil
	}
	return ierrors.New(ierrors.ErrCodeMalformedDescription,
		fmt.Sprintf("description is missing %v", missing), nil)
}

// Item is one search result. It must carry KeyRelevance with a numeric
// value; every other key is provider-defined.
type Item map[string]any

// NewItem builds an item with the given relevance and extra fields.
func NewItem(relevance float64, fields map[string]any) Item {
	item := make(Item, len(fields)+1)
	for k, v := range fields {
		item[k] = v
	}
	item[KeyRelevance] = relevance
	return item
}

// Relevance returns the item's relevance as float64. Integers beyond 2^53
// are rounded; use RelevanceKey to order them exactly.
// ok is false when the key is missing or not numeric.
func (i Item) Relevance() (float64, bool) {
	v, present := i[KeyRelevance]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

type relevanceKind uint8

const (
	relevanceFloat relevanceKind = iota
	relevanceSigned
	relevanceUnsigned
)

// RelevanceKey is an item's relevance prepared for ordering. Two integer
// relevances, signed or unsigned, compare exactly at any magnitude. A pair
// involving a float compares as float64, so integers beyond 2^53 lose
// precision there.
type RelevanceKey struct {
	kind relevanceKind
	i    int64
	u    uint64
	f    float64
}

// RelevanceKey returns the key of the item's relevance. A missing or
// non-numeric relevance yields the key of 0.
func (i Item) RelevanceKey() RelevanceKey {
	switch n := i[KeyRelevance].(type) {
	case int:
		return RelevanceKey{kind: relevanceSigned, i: int64(n)}
	case int8:
		return RelevanceKey{kind: relevanceSigned, i: int64(n)}
	case int16:
		return RelevanceKey{kind: relevanceSigned, i: int64(n)}
	case int32:
		return RelevanceKey{kind: relevanceSigned, i: int64(n)}
	case int64:
		return RelevanceKey{kind: relevanceSigned, i: n}
	case uint:
		return RelevanceKey{kind: relevanceUnsigned, u: uint64(n)}
	case uint8:
		return RelevanceKey{kind: relevanceUnsigned, u: uint64(n)}
	case uint16:
		return RelevanceKey{kind: relevanceUnsigned, u: uint64(n)}
	case uint32:
		return RelevanceKey{kind: relevanceUnsigned, u: uint64(n)}
	case uint64:
		return RelevanceKey{kind: relevanceUnsigned, u: n}
	default:
		f, _ := i.Relevance()
		return RelevanceKey{f: f}
	}
}

// Compare returns -1, 0 or +1 as k is less than, equal to or greater
// than o.
func (k RelevanceKey) Compare(o RelevanceKey) int {
	switch {
	case k.kind == relevanceSigned && o.kind == relevanceSigned:
		return cmp.Compare(k.i, o.i)
	case k.kind == relevanceUnsigned && o.kind == relevanceUnsigned:
		return cmp.Compare(k.u, o.u)
	case k.kind == relevanceSigned && o.kind == relevanceUnsigned:
		if k.i < 0 {
			return -1
		}
		return cmp.Compare(uint64(k.i), o.u)
	case k.kind == relevanceUnsigned && o.kind == relevanceSigned:
		return -o.Compare(k)
	default:
		return cmp.Compare(k.float(), o.float())
	}
}

func (k RelevanceKey) float() float64 {
	switch k.kind {
	case relevanceSigned:
		return float64(k.i)
	case relevanceUnsigned:
		return float64(k.u)
	default:
		return k.f
	}
}

// String returns the string value stored under key, or "".
func (i Item) String(key string) string {
	s, _ := i[key].(string)
	return s
}

// Validate checks the minimal item shape.
func (i Item) Validate() error {
	if i == nil {
		return ierrors.New(ierrors.ErrCodeMalformedItem, "item is nil", nil)
	}
	v, present := i[KeyRelevance]
	if !present {
		return ierrors.New(ierrors.ErrCodeMalformedItem, "item has no relevance", nil)
	}
	r, ok := i.Relevance()
	if !ok {
		return ierrors.New(ierrors.ErrCodeMalformedItem,
			fmt.Sprintf("relevance has non-numeric type %T", v), nil)
	}
	if math.IsNaN(r) {
		return ierrors.New(ierrors.ErrCodeMalformedItem, "relevance is NaN", nil)
	}
	return nil
}
