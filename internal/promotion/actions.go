package promotion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/expression"
)

// ActionFunc is one named then-clause operation. Executors only mutate
// the in-memory run state (facts, bindings, discounts, consumption);
// storage is never involved.
type ActionFunc func(run *Run, params map[string]any) error

func builtinActions() map[string]ActionFunc {
	return map[string]ActionFunc{
		"createLineDiscount":  createLineDiscount,
		"createOrderDiscount": createOrderDiscount,
		"tagAsUsed":           tagAsUsed,
	}
}

// Run is the mutable state of one engine invocation, threaded through
// every promotion and action. The discounts accumulator is shared by
// all promotions and mirrored into facts["discounts"] and
// bindings["discounts"] after every append.
type Run struct {
	Facts       domain.Facts
	Bindings    map[string]any
	PromotionID string

	eval      *expression.Evaluator
	newID     func() string
	discounts []domain.Discount
	consumed  map[string]int
}

// Resolve turns an action parameter into its value: strings are
// expression sources evaluated against facts and bindings, maps and
// lists are resolved element-wise, everything else is a literal.
// Literal string parameters therefore need expression quoting ('"S4"').
func (run *Run) Resolve(param any) (any, error) {
	switch v := param.(type) {
	case string:
		return run.eval.Evaluate(v, run.Facts, run.Bindings)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, raw := range v {
			resolved, err := run.Resolve(raw)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, raw := range v {
			resolved, err := run.Resolve(raw)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return param, nil
	}
}

func (run *Run) appendDiscount(d domain.Discount) {
	run.discounts = append(run.discounts, d)
	run.syncDiscounts()
}

func (run *Run) syncDiscounts() {
	view := make([]any, len(run.discounts))
	for i, d := range run.discounts {
		view[i] = map[string]any{
			"id":          d.ID,
			"promotionId": d.PromotionID,
			"type":        string(d.Type),
			"sku":         d.SKU,
			"value": map[string]any{
				"type":           d.Value.Type,
				"currencyCode":   d.Value.CurrencyCode,
				"centAmount":     d.Value.CentAmount,
				"fractionDigits": d.Value.FractionDigits,
			},
		}
	}
	run.Facts["discounts"] = view
	run.Bindings["discounts"] = view
}

func (run *Run) money(cents int64) domain.Money {
	currency, _ := run.Facts["currency"].(string)
	return domain.Money{
		Type:           "centPrecision",
		CurrencyCode:   currency,
		CentAmount:     cents,
		FractionDigits: 2,
	}
}

// createLineDiscount resolves a sku and a discount amount and appends
// a line-level discount entry.
func createLineDiscount(run *Run, params map[string]any) error {
	sku, err := run.resolveString(params, "sku")
	if err != nil {
		return err
	}
	cents, err := run.resolveCents(params, "discount")
	if err != nil {
		return err
	}
	run.appendDiscount(domain.Discount{
		ID:          run.newID(),
		PromotionID: run.PromotionID,
		Type:        domain.DiscountLine,
		SKU:         sku,
		Value:       run.money(cents),
	})
	return nil
}

// createOrderDiscount resolves a discount amount against the running
// total and appends an order-level entry.
func createOrderDiscount(run *Run, params map[string]any) error {
	cents, err := run.resolveCents(params, "discount")
	if err != nil {
		return err
	}
	run.appendDiscount(domain.Discount{
		ID:          run.newID(),
		PromotionID: run.PromotionID,
		Type:        domain.DiscountOrder,
		Value:       run.money(cents),
	})
	return nil
}

// tagAsUsed decrements the available quantity of the listed cart items
// so later when clauses, in this promotion or any following one, see
// the units as claimed.
func tagAsUsed(run *Run, params map[string]any) error {
	raw, ok := params["items"]
	if !ok {
		return fmt.Errorf("%w: tagAsUsed requires items", domain.ErrDefinitionInvalid)
	}
	resolved, err := run.Resolve(raw)
	if err != nil {
		return err
	}
	entries, ok := resolved.([]any)
	if !ok {
		return fmt.Errorf("%w: tagAsUsed items must be a list, got %T", domain.ErrDefinitionInvalid, resolved)
	}

	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: tagAsUsed entry must be an object, got %T", domain.ErrDefinitionInvalid, entry)
		}
		productID, ok := m["productId"].(string)
		if !ok {
			return fmt.Errorf("%w: tagAsUsed entry missing productId", domain.ErrDefinitionInvalid)
		}
		quantity, err := toCents(m["quantity"])
		if err != nil {
			return fmt.Errorf("%w: tagAsUsed quantity for %s: %v", domain.ErrDefinitionInvalid, productID, err)
		}
		run.consume(productID, int(quantity))
	}
	return nil
}

func (run *Run) consume(productID string, quantity int) {
	items, _ := run.Facts["items"].([]any)
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok || item["id"] != productID {
			continue
		}
		available := 0
		if f, ok, _ := toNumber(item["quantity"]); ok {
			available = int(f)
		}
		claimed := quantity
		if claimed > available {
			claimed = available
		}
		item["quantity"] = available - claimed
		run.consumed[productID] += claimed
		return
	}
}

func (run *Run) resolveString(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: action requires %s", domain.ErrDefinitionInvalid, key)
	}
	resolved, err := run.Resolve(raw)
	if err != nil {
		return "", err
	}
	s, ok := resolved.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must resolve to a string, got %T", domain.ErrDefinitionInvalid, key, resolved)
	}
	return s, nil
}

func (run *Run) resolveCents(params map[string]any, key string) (int64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: action requires %s", domain.ErrDefinitionInvalid, key)
	}
	resolved, err := run.Resolve(raw)
	if err != nil {
		return 0, err
	}
	cents, err := toCents(resolved)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrDefinitionInvalid, key, err)
	}
	return cents, nil
}

// toCents normalizes a resolved amount to integer minor units. Floats
// (percentage math and JSON round trips produce them) are rounded
// through decimal so 0.1+0.2 style artifacts never reach a price.
func toCents(v any) (int64, error) {
	f, ok, isInt := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if isInt {
		return int64(f), nil
	}
	return decimal.NewFromFloat(f).Round(0).IntPart(), nil
}

func toNumber(v any) (value float64, ok bool, isInt bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case int32:
		return float64(n), true, true
	case float64:
		return n, true, false
	case float32:
		return float64(n), true, false
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true, false
	}
	return 0, false, false
}
