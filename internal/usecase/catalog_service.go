package usecase

import (
	"context"
	"fmt"

	"github.com/mitchellh/copystructure"
	"github.com/rs/zerolog"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/domain/model"
	"github.com/Victor-armando18/service-catalog/internal/infrastructure"
	"github.com/Victor-armando18/service-catalog/internal/interfaces"
	"github.com/Victor-armando18/service-catalog/internal/pricing"
	"github.com/Victor-armando18/service-catalog/internal/promotion"
)

// CatalogService is the facade the surrounding system calls: price a
// line before it enters the cart, apply promotions over the whole
// cart. Repositories are pre-fetched snapshots per call; the engine
// never re-reads mid-evaluation.
type CatalogService struct {
	promotions interfaces.PromotionRepository
	resolver   *pricing.Resolver
	engine     *promotion.Engine
	log        zerolog.Logger
}

var _ interfaces.CatalogFacade = (*CatalogService)(nil)

func NewCatalogService(
	promotions interfaces.PromotionRepository,
	resolver *pricing.Resolver,
	engine *promotion.Engine,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		promotions: promotions,
		resolver:   resolver,
		engine:     engine,
		log:        log,
	}
}

// PriceFor resolves the applicable price tier for a SKU in the context
// of the given cart.
func (s *CatalogService) PriceFor(ctx context.Context, sku string, cart model.Cart) (domain.Money, error) {
	value, err := s.resolver.MatchPrice(ctx, sku, cart.ToFacts())
	if err != nil {
		return domain.Money{}, err
	}
	return value, nil
}

// ApplyPromotions fetches the active promotion snapshot and runs the
// engine over the cart facts.
func (s *CatalogService) ApplyPromotions(ctx context.Context, cart model.Cart) (*domain.PromotionResult, error) {
	return s.ApplyPromotionsToFacts(ctx, cart.ToFacts())
}

// ApplyPromotionsToFacts is the raw-facts entry point for adapters
// that shape carts themselves. The input map is deep-cloned first, so
// the caller's representation survives the run unchanged; the result
// carries the mutated snapshot plus a merge patch describing exactly
// what the engine changed.
func (s *CatalogService) ApplyPromotionsToFacts(ctx context.Context, facts domain.Facts) (*domain.PromotionResult, error) {
	promotions, err := s.promotions.ActivePromotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}

	cloned, err := copystructure.Copy(facts)
	if err != nil {
		return nil, fmt.Errorf("clone facts: %w", err)
	}
	working, ok := cloned.(domain.Facts)
	if !ok {
		return nil, fmt.Errorf("clone facts: unexpected type %T", cloned)
	}

	outcome, err := s.engine.Apply(ctx, promotions, working)
	if err != nil {
		return nil, err
	}

	delta, changed, err := infrastructure.FactsDelta(facts, working)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("promotions", len(promotions)).
		Int("discounts", len(outcome.Discounts)).
		Int("failures", len(outcome.Failures)).
		Bool("delta", changed).
		Msg("promotion run complete")

	return &domain.PromotionResult{
		Discounts:   outcome.Discounts,
		Applied:     outcome.Applied,
		Failures:    outcome.Failures,
		Consumed:    outcome.Consumed,
		Facts:       working,
		FactsDelta:  delta,
		ServerDelta: changed,
	}, nil
}
