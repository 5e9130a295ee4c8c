package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Facts is the JSON-shaped evaluation input: cart items, customer
// attributes and the running discounts accumulator. Expressions read
// from it directly, actions mutate it.
type Facts map[string]any

// Money is a currency amount in minor units.
type Money struct {
	Type           string `json:"type" yaml:"type"`
	CurrencyCode   string `json:"currencyCode" yaml:"currencyCode"`
	CentAmount     int64  `json:"centAmount" yaml:"centAmount"`
	FractionDigits int    `json:"fractionDigits" yaml:"fractionDigits"`
}

// PricePredicate is one conditional tier of a price. Constraints are
// authoring/indexing hints; at match time only Expression decides. A
// predicate without an expression matches unconditionally.
type PricePredicate struct {
	Order       int            `json:"order" yaml:"order"`
	Value       Money          `json:"value" yaml:"value"`
	Constraints map[string]any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Expression  string         `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Price is a SKU-scoped ordered list of predicates. Several Price
// records may exist for the same SKU (different catalogs or sync
// sources); Order ranks them when candidate lists are merged.
type Price struct {
	ID         string           `json:"id" yaml:"id"`
	SKU        string           `json:"sku" yaml:"sku"`
	Catalog    string           `json:"catalog" yaml:"catalog"`
	Active     bool             `json:"active" yaml:"active"`
	Order      int              `json:"order" yaml:"order"`
	Predicates []PricePredicate `json:"predicates" yaml:"predicates"`
}

// WhenClause binds the result of one expression under a name. Clauses
// run in declaration order; later clauses see earlier bindings.
type WhenClause struct {
	Bind   string
	Source string
}

// WhenList preserves the authored order of a promotion's when map.
// Plain Go maps lose it, so both decoders walk the raw document.
type WhenList []WhenClause

func (w *WhenList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: when must be a mapping", ErrDefinitionInvalid)
	}
	out := make(WhenList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, src string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&src); err != nil {
			return err
		}
		out = append(out, WhenClause{Bind: key, Source: src})
	}
	*w = out
	return nil
}

func (w *WhenList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: when must be an object", ErrDefinitionInvalid)
	}
	var out WhenList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var src string
		if err := dec.Decode(&src); err != nil {
			return fmt.Errorf("%w: when clause %q: %v", ErrDefinitionInvalid, key, err)
		}
		out = append(out, WhenClause{Bind: key, Source: src})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*w = out
	return nil
}

func (w WhenList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(c.Bind)
		v, _ := json.Marshal(c.Source)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ActionSpec is one then-clause invocation: the executor name plus its
// parameters. Parameter strings are expression sources, resolved
// against facts and bindings when the action fires.
type ActionSpec struct {
	Name   string
	Params map[string]any
}

func (a *ActionSpec) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]any{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return a.fromRaw(raw)
}

func (a *ActionSpec) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return a.fromRaw(raw)
}

func (a *ActionSpec) fromRaw(raw map[string]any) error {
	name, _ := raw["action"].(string)
	if name == "" {
		return fmt.Errorf("%w: then entry missing action name", ErrDefinitionInvalid)
	}
	delete(raw, "action")
	a.Name = name
	a.Params = raw
	return nil
}

// Promotion is a named rule: an optional jsonlogic audience prefilter,
// an ordered when clause set and a then action list. Times caps how
// often the rule may fire in one run; zero falls back to the engine's
// safety cap.
type Promotion struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Active   bool           `json:"active" yaml:"active"`
	Audience map[string]any `json:"audience,omitempty" yaml:"audience,omitempty"`
	When     WhenList       `json:"when" yaml:"when"`
	Then     []ActionSpec   `json:"then" yaml:"then"`
	Times    int            `json:"times,omitempty" yaml:"times,omitempty"`
}

type DiscountType string

const (
	DiscountLine  DiscountType = "line"
	DiscountOrder DiscountType = "order"
)

// Discount is one computed discount entry, line- or order-level.
type Discount struct {
	ID          string       `json:"id"`
	PromotionID string       `json:"promotionId"`
	Type        DiscountType `json:"type"`
	SKU         string       `json:"sku,omitempty"`
	Value       Money        `json:"value"`
}

// AppliedPromotion records how often a promotion fired in one run.
type AppliedPromotion struct {
	PromotionID string `json:"promotionId"`
	Name        string `json:"name"`
	Executions  int    `json:"executions"`
}

// PromotionFailure reports a promotion skipped over a configuration
// problem. The rest of the run is unaffected.
type PromotionFailure struct {
	PromotionID string `json:"promotionId"`
	Reason      string `json:"reason"`
}

// PromotionResult is the aggregate outcome of one engine invocation.
type PromotionResult struct {
	Discounts   []Discount         `json:"discounts"`
	Applied     []AppliedPromotion `json:"applied"`
	Failures    []PromotionFailure `json:"failures,omitempty"`
	Consumed    map[string]int     `json:"consumed,omitempty"`
	Facts       Facts              `json:"facts"`
	FactsDelta  json.RawMessage    `json:"factsDelta,omitempty"`
	ServerDelta bool               `json:"serverDelta"`
}
