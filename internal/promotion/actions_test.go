package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/expression"
)

func newTestRun() *Run {
	run := &Run{
		Facts:    cartFacts(),
		Bindings: map[string]any{},
		eval:     expression.New(expression.DefaultFunctions()...),
		newID:    func() string { return "fixed-id" },
		consumed: map[string]int{},
	}
	run.PromotionID = "promo-1"
	run.syncDiscounts()
	return run
}

func TestCreateLineDiscount(t *testing.T) {
	run := newTestRun()
	err := createLineDiscount(run, map[string]any{
		"sku":      `"S4"`,
		"discount": "total * 0.1",
	})
	require.NoError(t, err)

	require.Len(t, run.discounts, 1)
	d := run.discounts[0]
	assert.Equal(t, domain.Discount{
		ID:          "fixed-id",
		PromotionID: "promo-1",
		Type:        domain.DiscountLine,
		SKU:         "S4",
		Value: domain.Money{
			Type:           "centPrecision",
			CurrencyCode:   "EUR",
			CentAmount:     31410,
			FractionDigits: 2,
		},
	}, d)

	// Both views of the accumulator must see the new entry.
	factsView := run.Facts["discounts"].([]any)
	bindingsView := run.Bindings["discounts"].([]any)
	require.Len(t, factsView, 1)
	require.Len(t, bindingsView, 1)
	assert.EqualValues(t, 31410, factsView[0].(map[string]any)["value"].(map[string]any)["centAmount"])
}

func TestCreateLineDiscount_ParamValidation(t *testing.T) {
	run := newTestRun()

	err := createLineDiscount(run, map[string]any{"discount": "100"})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid, "missing sku")

	err = createLineDiscount(run, map[string]any{"sku": "total", "discount": "100"})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid, "sku resolving to a number")

	err = createLineDiscount(run, map[string]any{"sku": `"S4"`, "discount": `"free"`})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid, "non-numeric discount")

	err = createLineDiscount(run, map[string]any{"sku": "total >", "discount": "100"})
	require.ErrorIs(t, err, domain.ErrExpression, "malformed parameter expression")
}

func TestCreateOrderDiscount_RoundsFractionalCents(t *testing.T) {
	run := newTestRun()
	run.Facts["total"] = int64(99)

	err := createOrderDiscount(run, map[string]any{"discount": "total * 0.15"})
	require.NoError(t, err)

	require.Len(t, run.discounts, 1)
	assert.Equal(t, domain.DiscountOrder, run.discounts[0].Type)
	assert.Empty(t, run.discounts[0].SKU)
	// 14.85 rounds to 15 minor units, not truncated to 14.
	assert.EqualValues(t, 15, run.discounts[0].Value.CentAmount)
}

func TestTagAsUsed(t *testing.T) {
	run := newTestRun()

	err := tagAsUsed(run, map[string]any{
		"items": []any{map[string]any{"productId": `"line-1"`, "quantity": "3"}},
	})
	require.NoError(t, err)

	item := run.Facts["items"].([]any)[0].(map[string]any)
	assert.Equal(t, 6, item["quantity"])
	assert.Equal(t, 3, run.consumed["line-1"])
}

func TestTagAsUsed_ClampsAtZero(t *testing.T) {
	run := newTestRun()

	err := tagAsUsed(run, map[string]any{
		"items": []any{map[string]any{"productId": `"line-1"`, "quantity": "50"}},
	})
	require.NoError(t, err)

	item := run.Facts["items"].([]any)[0].(map[string]any)
	assert.Equal(t, 0, item["quantity"])
	assert.Equal(t, 9, run.consumed["line-1"], "only actually available units count as consumed")
}

func TestTagAsUsed_UnknownProductIsANoop(t *testing.T) {
	run := newTestRun()

	err := tagAsUsed(run, map[string]any{
		"items": []any{map[string]any{"productId": `"ghost"`, "quantity": "1"}},
	})
	require.NoError(t, err)
	assert.Empty(t, run.consumed)
}

func TestTagAsUsed_ParamValidation(t *testing.T) {
	run := newTestRun()

	err := tagAsUsed(run, map[string]any{})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid)

	err = tagAsUsed(run, map[string]any{"items": "total"})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid, "items must resolve to a list")

	err = tagAsUsed(run, map[string]any{
		"items": []any{map[string]any{"quantity": "1"}},
	})
	require.ErrorIs(t, err, domain.ErrDefinitionInvalid, "entry missing productId")
}
