package expression

import (
	"encoding/json"
	"fmt"
)

// DefaultFunctions is the catalog extension set: item lookups over the
// cart facts plus the discount aggregate. All of them only consider
// items with availability left, so consumption by earlier promotions
// is reflected automatically.
func DefaultFunctions() []Function {
	return []Function{
		{Name: "itemBySku", Fn: itemBySku},
		{Name: "firstInCategory", Fn: firstInCategory},
		{Name: "cheapestInCategory", Fn: cheapestInCategory},
		{Name: "discountTotal", Fn: discountTotal},
	}
}

// itemBySku(items, sku[, minQuantity]) returns the first item with the
// given SKU and at least minQuantity (default 1) available units, or
// nil when none qualifies.
func itemBySku(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("itemBySku expects (items, sku[, minQuantity])")
	}
	sku, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("itemBySku: sku must be a string, got %T", args[1])
	}
	minQty := 1.0
	if len(args) > 2 {
		if q, ok := toFloat(args[2]); ok {
			minQty = q
		}
	}
	for _, item := range asItems(args[0]) {
		qty, _ := toFloat(item["quantity"])
		if item["sku"] == sku && qty >= minQty {
			return item, nil
		}
	}
	return nil, nil
}

// firstInCategory(items, category) returns the first available item
// carrying the category, or nil.
func firstInCategory(args ...any) (any, error) {
	items, category, err := categoryArgs("firstInCategory", args)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		qty, _ := toFloat(item["quantity"])
		if qty > 0 && hasCategory(item, category) {
			return item, nil
		}
	}
	return nil, nil
}

// cheapestInCategory(items, category) returns the available item with
// the lowest value.centAmount inside the category, or nil.
func cheapestInCategory(args ...any) (any, error) {
	items, category, err := categoryArgs("cheapestInCategory", args)
	if err != nil {
		return nil, err
	}
	var cheapest map[string]any
	var lowest float64
	for _, item := range items {
		qty, _ := toFloat(item["quantity"])
		if qty <= 0 || !hasCategory(item, category) {
			continue
		}
		amount, ok := toFloat(itemValue(item)["centAmount"])
		if !ok {
			continue
		}
		if cheapest == nil || amount < lowest {
			cheapest, lowest = item, amount
		}
	}
	if cheapest == nil {
		return nil, nil
	}
	return cheapest, nil
}

// discountTotal(discounts) sums value.centAmount over the accumulated
// discount entries, so order-level rules can reference what line
// rules already granted.
func discountTotal(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("discountTotal expects (discounts)")
	}
	var total int64
	for _, entry := range asItems(args[0]) {
		if amount, ok := toFloat(itemValue(entry)["centAmount"]); ok {
			total += int64(amount)
		}
	}
	return total, nil
}

func categoryArgs(name string, args []any) ([]map[string]any, string, error) {
	if len(args) != 2 {
		return nil, "", fmt.Errorf("%s expects (items, category)", name)
	}
	category, ok := args[1].(string)
	if !ok {
		return nil, "", fmt.Errorf("%s: category must be a string, got %T", name, args[1])
	}
	return asItems(args[0]), category, nil
}

func asItems(v any) []map[string]any {
	var out []map[string]any
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func itemValue(item map[string]any) map[string]any {
	if m, ok := item["value"].(map[string]any); ok {
		return m
	}
	return nil
}

func hasCategory(item map[string]any, category string) bool {
	switch categories := item["categories"].(type) {
	case []string:
		for _, c := range categories {
			if c == category {
				return true
			}
		}
	case []any:
		for _, c := range categories {
			if c == category {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
