package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/domain/model"
	"github.com/Victor-armando18/service-catalog/internal/expression"
	"github.com/Victor-armando18/service-catalog/internal/infrastructure"
	"github.com/Victor-armando18/service-catalog/internal/infrastructure/catalogfile"
	"github.com/Victor-armando18/service-catalog/internal/pricing"
	"github.com/Victor-armando18/service-catalog/internal/promotion"
	"github.com/Victor-armando18/service-catalog/internal/usecase"
)

func main() {
	definitions := flag.String("definitions", "examples/definitions.yaml", "path to the catalog definitions file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	defs, err := catalogfile.Load(*definitions)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load definitions")
	}

	repo := catalogfile.NewRepository(defs)
	eval := expression.New(expression.DefaultFunctions()...)
	resolver := pricing.NewResolver(repo, eval, pricing.WithLogger(log))
	engine := promotion.NewEngine(eval,
		promotion.WithAudienceFilter(infrastructure.NewJSONLogicAudience()),
		promotion.WithEngineLogger(log),
	)
	service := usecase.NewCatalogService(repo, resolver, engine, log)

	cart := sampleCart()
	ctx := context.Background()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   CATALOG ENGINE - DIAGNOSTIC RUN (%s)\n", defs.Version)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Println("\n[1. PRICE RESOLUTION]")
	for _, item := range cart.Items {
		value, err := service.PriceFor(ctx, item.SKU, cart)
		if err != nil {
			fmt.Printf("   %-10s -> %v\n", item.SKU, err)
			continue
		}
		fmt.Printf("   %-10s -> %d %s\n", item.SKU, value.CentAmount, value.CurrencyCode)
	}

	result, err := service.ApplyPromotions(ctx, cart)
	if err != nil {
		log.Fatal().Err(err).Msg("promotion run failed")
	}

	fmt.Println("\n[2. APPLIED PROMOTIONS]")
	if len(result.Applied) == 0 {
		fmt.Println("   none matched")
	}
	for _, applied := range result.Applied {
		fmt.Printf("   %-20s x%d (%s)\n", applied.Name, applied.Executions, applied.PromotionID)
	}
	for _, failure := range result.Failures {
		fmt.Printf("   SKIPPED %-12s %s\n", failure.PromotionID, failure.Reason)
	}

	fmt.Println("\n[3. DISCOUNTS]")
	var total int64
	for _, d := range result.Discounts {
		target := "order"
		if d.Type == domain.DiscountLine {
			target = d.SKU
		}
		fmt.Printf("   %-10s -%d %s (promotion %s)\n", target, d.Value.CentAmount, d.Value.CurrencyCode, d.PromotionID)
		total += d.Value.CentAmount
	}
	fmt.Printf("   TOTAL      -%d\n", total)

	fmt.Println("\n[4. FACTS DELTA]")
	delta, _ := json.MarshalIndent(json.RawMessage(result.FactsDelta), "   ", "  ")
	fmt.Printf("   server delta: %v\n   %s\n", result.ServerDelta, delta)

	fmt.Println(strings.Repeat("=", 60))
}

func sampleCart() model.Cart {
	return model.Cart{
		ID:       "CART-CLI-001",
		Currency: "EUR",
		Country:  []string{"IT"},
		Channel:  "web",
		Locale:   "it-IT",
		Customer: model.Customer{ID: "cust-1", CustomerGroup: "b2c"},
		Items: []model.CartItem{
			{
				ID:         "line-1",
				SKU:        "S4",
				Categories: []string{"phones"},
				Quantity:   9,
				Value:      money(34900),
			},
			{
				ID:         "line-2",
				SKU:        "CASE-01",
				Categories: []string{"accessories"},
				Quantity:   1,
				Value:      money(1900),
			},
		},
	}
}

func money(cents int64) domain.Money {
	return domain.Money{
		Type:           "centPrecision",
		CurrencyCode:   "EUR",
		CentAmount:     cents,
		FractionDigits: 2,
	}
}
