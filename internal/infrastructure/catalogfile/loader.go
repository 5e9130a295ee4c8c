// Package catalogfile loads price and promotion definitions from a
// YAML or JSON file and serves them through the repository ports. It
// stands in for the catalog service in the CLI, in tests and in small
// deployments.
package catalogfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Victor-armando18/service-catalog/internal/domain"
)

// Definitions is the file shape: a version marker plus the full price
// and promotion sets. Promotion order in the file is the evaluation
// order.
type Definitions struct {
	Version    string             `json:"version" yaml:"version"`
	Prices     []domain.Price     `json:"prices" yaml:"prices"`
	Promotions []domain.Promotion `json:"promotions" yaml:"promotions"`
}

// Load reads a definitions file, picking the decoder by extension.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions %s: %w", path, err)
	}

	var defs Definitions
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &defs)
	default:
		err = yaml.Unmarshal(data, &defs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDefinitionInvalid, path, err)
	}
	return &defs, nil
}

// Repository serves a loaded definition set through the promotion and
// price ports. Each call builds a fresh slice, preserving file order;
// the engine treats the records themselves as read-only.
type Repository struct {
	defs *Definitions
}

func NewRepository(defs *Definitions) *Repository {
	return &Repository{defs: defs}
}

func (r *Repository) ActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	var out []domain.Promotion
	for _, promo := range r.defs.Promotions {
		if promo.Active {
			out = append(out, promo)
		}
	}
	return out, nil
}

func (r *Repository) ActivePrices(ctx context.Context, sku string) ([]domain.Price, error) {
	var out []domain.Price
	for _, price := range r.defs.Prices {
		if price.Active && price.SKU == sku {
			out = append(out, price)
		}
	}
	return out, nil
}
