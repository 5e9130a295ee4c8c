package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/expression"
)

type stubPriceRepo struct {
	prices []domain.Price
	calls  int
	err    error
}

func (s *stubPriceRepo) ActivePrices(ctx context.Context, sku string) ([]domain.Price, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Price
	for _, p := range s.prices {
		if p.SKU == sku {
			out = append(out, p)
		}
	}
	return out, nil
}

func eur(cents int64) domain.Money {
	return domain.Money{Type: "centPrecision", CurrencyCode: "EUR", CentAmount: cents, FractionDigits: 2}
}

func countryTieredPrice() domain.Price {
	return domain.Price{
		ID: "p1", SKU: "S1", Active: true, Order: 1,
		Predicates: []domain.PricePredicate{
			{
				Order:       1,
				Constraints: map[string]any{"country": []any{"IT"}},
				Expression:  `"IT" in country`,
				Value:       eur(1000),
			},
			{Order: 2, Value: eur(2000)},
		},
	}
}

func TestMatchPrice_FirstMatchWins(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{countryTieredPrice()}}
	resolver := NewResolver(repo, expression.New())

	t.Run("guarded predicate matches", func(t *testing.T) {
		value, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{"country": []any{"IT"}})
		require.NoError(t, err)
		assert.EqualValues(t, 1000, value.CentAmount)
	})

	t.Run("falls through to unconditional predicate", func(t *testing.T) {
		value, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{"country": []any{"DE"}})
		require.NoError(t, err)
		assert.EqualValues(t, 2000, value.CentAmount)
	})
}

func TestMatchPrice_NeverReadsPastFirstMatch(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{{
		ID: "p1", SKU: "S1", Active: true, Order: 1,
		Predicates: []domain.PricePredicate{
			{Order: 1, Expression: "total > 999999", Value: eur(100)},
			{Order: 2, Expression: "total > 0", Value: eur(200)},
			{Order: 3, Expression: "total > 0", Value: eur(300)},
		},
	}}}
	resolver := NewResolver(repo, expression.New())

	value, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{"total": int64(500)})
	require.NoError(t, err)
	assert.EqualValues(t, 200, value.CentAmount, "predicate 2 matches first; 3 must never be reached")
}

func TestCandidates_MergeAndOrdering(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{
		{
			ID: "sync", SKU: "S1", Active: true, Order: 2,
			Predicates: []domain.PricePredicate{{Order: 1, Value: eur(500)}},
		},
		{
			ID: "main", SKU: "S1", Active: true, Order: 1,
			Predicates: []domain.PricePredicate{
				{Order: 2, Value: eur(20)},
				{Order: 1, Value: eur(10)},
			},
		},
		{
			ID: "off", SKU: "S1", Active: false, Order: 0,
			Predicates: []domain.PricePredicate{{Order: 1, Value: eur(1)}},
		},
	}}
	resolver := NewResolver(repo, expression.New())

	candidates, err := resolver.Candidates(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, candidates, 3, "inactive price must be excluded")

	var amounts []int64
	for _, c := range candidates {
		amounts = append(amounts, c.Predicate.Value.CentAmount)
	}
	assert.Equal(t, []int64{10, 20, 500}, amounts, "sort by price order, then predicate order")
}

func TestMatchPrice_NotFound(t *testing.T) {
	repo := &stubPriceRepo{}
	resolver := NewResolver(repo, expression.New())

	_, err := resolver.MatchPrice(context.Background(), "GHOST", domain.Facts{})
	require.ErrorIs(t, err, domain.ErrPriceNotFound)
	assert.Contains(t, err.Error(), "GHOST")
}

func TestMatchPrice_NonBooleanExpressionDoesNotMatch(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{{
		ID: "p1", SKU: "S1", Active: true, Order: 1,
		Predicates: []domain.PricePredicate{
			{Order: 1, Expression: "total", Value: eur(100)},
		},
	}}}
	resolver := NewResolver(repo, expression.New())

	_, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{"total": int64(7)})
	require.ErrorIs(t, err, domain.ErrPriceNotFound, "strict boolean true is required")
}

func TestMatchPrice_ExpressionErrorFailsLoud(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{{
		ID: "p1", SKU: "S1", Active: true, Order: 1,
		Predicates: []domain.PricePredicate{
			{Order: 1, Expression: "total >", Value: eur(100)},
			{Order: 2, Value: eur(200)},
		},
	}}}
	resolver := NewResolver(repo, expression.New())

	_, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{"total": int64(7)})
	require.ErrorIs(t, err, domain.ErrExpression, "must not skip to the fallback tier")
}

func TestMatchPrice_UpstreamErrorPropagates(t *testing.T) {
	boom := errors.New("storage down")
	resolver := NewResolver(&stubPriceRepo{err: boom}, expression.New())

	_, err := resolver.MatchPrice(context.Background(), "S1", domain.Facts{})
	require.ErrorIs(t, err, boom)
}

func TestCandidates_TTLCache(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{countryTieredPrice()}}
	resolver := NewResolver(repo, expression.New(), WithTTL(time.Minute))

	now := time.Now()
	resolver.cache.now = func() time.Time { return now }

	_, err := resolver.Candidates(context.Background(), "S1")
	require.NoError(t, err)
	_, err = resolver.Candidates(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second lookup must be served from cache")

	now = now.Add(2 * time.Minute)
	_, err = resolver.Candidates(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "expired entry must be refetched")
}

func TestCandidates_CacheDisabled(t *testing.T) {
	repo := &stubPriceRepo{prices: []domain.Price{countryTieredPrice()}}
	resolver := NewResolver(repo, expression.New(), WithTTL(0))

	for i := 0; i < 3; i++ {
		_, err := resolver.Candidates(context.Background(), "S1")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.calls)
}
