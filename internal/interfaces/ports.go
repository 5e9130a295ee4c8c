package interfaces

import (
	"context"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/domain/model"
)

// PromotionRepository supplies the promotion snapshot to evaluate, in
// the order promotions must run. Fetched fresh per engine invocation;
// only compiled expressions are cached, never the definitions.
type PromotionRepository interface {
	ActivePromotions(ctx context.Context) ([]domain.Promotion, error)
}

// PriceRepository supplies the Price records for a SKU. Results may be
// served from an external cache; the resolver layers its own TTL cache
// on top of the merged candidate list.
type PriceRepository interface {
	ActivePrices(ctx context.Context, sku string) ([]domain.Price, error)
}

// AudienceFilter decides promotion eligibility from a declarative rule
// before the when loop runs. A nil error with false simply skips the
// promotion.
type AudienceFilter interface {
	Eligible(ctx context.Context, rule map[string]any, facts domain.Facts) (bool, error)
}

// CatalogFacade is the entry point exposed to the surrounding system.
type CatalogFacade interface {
	PriceFor(ctx context.Context, sku string, cart model.Cart) (domain.Money, error)
	ApplyPromotions(ctx context.Context, cart model.Cart) (*domain.PromotionResult, error)
}
