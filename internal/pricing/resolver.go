package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/expression"
	"github.com/Victor-armando18/service-catalog/internal/interfaces"
)

// DefaultTTL is how long merged candidate lists stay cached per SKU.
const DefaultTTL = 30 * time.Second

// Candidate is a price predicate annotated with the order of the
// Price record it came from.
type Candidate struct {
	PriceOrder int
	Predicate  domain.PricePredicate
}

// Resolver picks the applicable price tier for a SKU: merge the
// predicates of all active Price records, walk them in order, first
// match wins. Candidate lists hold no customer-specific filtering, so
// they are safe to share across requests; matching happens per request
// through the predicate expressions.
type Resolver struct {
	repo  interfaces.PriceRepository
	eval  *expression.Evaluator
	cache *candidateCache
	log   zerolog.Logger
}

type ResolverOption func(*Resolver)

func WithTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.cache = newCandidateCache(ttl) }
}

func WithLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

func NewResolver(repo interfaces.PriceRepository, eval *expression.Evaluator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:  repo,
		eval:  eval,
		cache: newCandidateCache(DefaultTTL),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the merged predicate list for a SKU, sorted
// ascending by (price order, predicate order), served from cache
// within the TTL.
func (r *Resolver) Candidates(ctx context.Context, sku string) ([]Candidate, error) {
	if cached, ok := r.cache.get(sku); ok {
		return cached, nil
	}

	prices, err := r.repo.ActivePrices(ctx, sku)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, price := range prices {
		if !price.Active {
			continue
		}
		for _, predicate := range price.Predicates {
			candidates = append(candidates, Candidate{PriceOrder: price.Order, Predicate: predicate})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PriceOrder != candidates[j].PriceOrder {
			return candidates[i].PriceOrder < candidates[j].PriceOrder
		}
		return candidates[i].Predicate.Order < candidates[j].Predicate.Order
	})

	r.cache.set(sku, candidates)
	return candidates, nil
}

// MatchPrice walks the candidate list in order. A predicate without an
// expression matches unconditionally; otherwise its expression must
// evaluate to strict boolean true. Expression failures propagate —
// pricing never silently falls through to a lower tier.
func (r *Resolver) MatchPrice(ctx context.Context, sku string, facts domain.Facts) (domain.Money, error) {
	candidates, err := r.Candidates(ctx, sku)
	if err != nil {
		return domain.Money{}, err
	}

	for _, candidate := range candidates {
		if candidate.Predicate.Expression == "" {
			r.logMatch(sku, candidate)
			return candidate.Predicate.Value, nil
		}
		out, err := r.eval.Evaluate(candidate.Predicate.Expression, facts, nil)
		if err != nil {
			return domain.Money{}, err
		}
		if matched, ok := out.(bool); ok && matched {
			r.logMatch(sku, candidate)
			return candidate.Predicate.Value, nil
		}
	}

	return domain.Money{}, fmt.Errorf("%w: sku %s", domain.ErrPriceNotFound, sku)
}

func (r *Resolver) logMatch(sku string, candidate Candidate) {
	r.log.Debug().
		Str("sku", sku).
		Int("priceOrder", candidate.PriceOrder).
		Int("predicateOrder", candidate.Predicate.Order).
		Int64("centAmount", candidate.Predicate.Value.CentAmount).
		Msg("price matched")
}
