package model

import (
	"github.com/Victor-armando18/service-catalog/internal/domain"
)

// Cart is the typed shape an order-management adapter hands over.
// Promotions and prices never touch it directly; they see the facts
// map produced by ToFacts.
type Cart struct {
	ID       string     `json:"id"`
	Currency string     `json:"currency"`
	Country  []string   `json:"country"`
	Channel  string     `json:"channel"`
	Locale   string     `json:"locale"`
	Customer Customer   `json:"customer"`
	Items    []CartItem `json:"items"`
}

type Customer struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	CustomerGroup string `json:"customerGroup"`
}

type CartItem struct {
	ID         string       `json:"id"`
	SKU        string       `json:"sku"`
	Categories []string     `json:"categories"`
	Quantity   int          `json:"quantity"`
	Value      domain.Money `json:"value"`
}

// ToFacts flattens the cart into the field names expressions reference:
// items[].sku, items[].categories, items[].value.centAmount,
// items[].quantity, customer.customerGroup, country, channel, locale,
// total. The maps are freshly built, so one facts snapshot belongs to
// exactly one evaluation.
func (c Cart) ToFacts() domain.Facts {
	items := make([]any, len(c.Items))
	var total int64
	for i, item := range c.Items {
		categories := make([]any, len(item.Categories))
		for j, cat := range item.Categories {
			categories[j] = cat
		}
		items[i] = map[string]any{
			"id":         item.ID,
			"sku":        item.SKU,
			"categories": categories,
			"quantity":   item.Quantity,
			"value": map[string]any{
				"type":           item.Value.Type,
				"currencyCode":   item.Value.CurrencyCode,
				"centAmount":     item.Value.CentAmount,
				"fractionDigits": item.Value.FractionDigits,
			},
		}
		total += item.Value.CentAmount * int64(item.Quantity)
	}

	country := make([]any, len(c.Country))
	for i, code := range c.Country {
		country[i] = code
	}

	return domain.Facts{
		"id":       c.ID,
		"currency": c.Currency,
		"country":  country,
		"channel":  c.Channel,
		"locale":   c.Locale,
		"customer": map[string]any{
			"id":            c.Customer.ID,
			"email":         c.Customer.Email,
			"customerGroup": c.Customer.CustomerGroup,
		},
		"items":     items,
		"total":     total,
		"discounts": []any{},
	}
}
