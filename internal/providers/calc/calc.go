// Package calc provides the "calc" search provider: it answers arithmetic
// queries such as "2 * (3 + 4)" with their value.
package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/indelve/indelve/pkg/provider"
)

// ID is the provider identifier.
const ID = "calc"

// KindCalculation is the item kind of calc results.
const KindCalculation = "calculation"

// DefaultTimeout bounds one evaluation.
const DefaultTimeout = 200 * time.Millisecond

// Description is the calc provider's static metadata.
var Description = provider.Description{
	Short: "Calculator",
	Long:  "Evaluates arithmetic expressions: + - * / % ^ and parentheses.",
}

var (
	// expressionRe accepts digits, operators, parentheses, spaces and dots.
	expressionRe = regexp.MustCompile(`^[0-9+\-*/%^().\s]+$`)
	// operatorRe requires a binary operator after an operand.
	operatorRe = regexp.MustCompile(`[0-9.)]\s*[+\-*/%^]`)
)

// Provider evaluates arithmetic queries.
type Provider struct {
	timeout time.Duration
}

// New creates a calculator with the given evaluation timeout.
// A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{timeout: timeout}
}

// Factory returns a registry factory.
func Factory(timeout time.Duration) provider.Factory {
	return func(context.Context) (provider.Provider, error) {
		return New(timeout), nil
	}
}

// Description implements provider.Provider.
func (p *Provider) Description() provider.Description {
	return Description
}

// Refresh implements provider.Provider. The calculator has no backing data.
func (p *Provider) Refresh(context.Context, bool) error {
	return nil
}

// Search implements provider.Provider. Queries that are not arithmetic
// expressions, or whose value is not a finite number, are not applicable.
func (p *Provider) Search(ctx context.Context, query string) ([]provider.Item, error) {
	expr := strings.TrimSpace(query)
	if !expressionRe.MatchString(expr) || !operatorRe.MatchString(expr) {
		return nil, provider.InvalidInput("query %q is not an arithmetic expression", query)
	}

	value, err := p.Evaluate(ctx, expr)
	if err != nil {
		return nil, err
	}

	formatted := Format(value)
	return []provider.Item{
		provider.NewItem(1, map[string]any{
			provider.KeyProvider: ID,
			provider.KeyTitle:    expr + " = " + formatted,
			provider.KeyKind:     KindCalculation,
			"value":              formatted,
		}),
	}, nil
}

// Evaluate runs expr in a fresh JavaScript runtime. "^" is exponentiation
// and binds tighter than unary minus, so "-2^2" is -4.
// Syntax errors and non-finite results match provider.ErrInvalidInput;
// hitting the timeout or ctx cancellation returns the interrupt error.
func (p *Provider) Evaluate(ctx context.Context, expr string) (float64, error) {
	js, err := normalize(expr)
	if err != nil {
		return 0, provider.InvalidInput("cannot evaluate %q: %v", expr, err)
	}

	vm := goja.New()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("evaluation timeout exceeded")
		case <-done:
		}
	}()

	val, err := vm.RunString(js)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return 0, fmt.Errorf("calc: %w", err)
		}
		return 0, provider.InvalidInput("cannot evaluate %q", expr)
	}

	value := val.ToFloat()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, provider.InvalidInput("%q has no finite value", expr)
	}
	return value, nil
}

// Format renders a value without a trailing ".0" or exponent for
// integers that fit in an int64.
func Format(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}
