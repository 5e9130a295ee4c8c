package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/Victor-armando18/service-catalog/internal/domain"
)

// JSONLogicAudience decides promotion eligibility from a jsonlogic
// rule over the customer-facing facts (customer, country, channel,
// locale). Rules stay coarse on purpose: fine-grained matching belongs
// to the when clauses.
type JSONLogicAudience struct {
	customOps map[string]func(args ...any) any
}

func NewJSONLogicAudience() *JSONLogicAudience {
	a := &JSONLogicAudience{
		customOps: make(map[string]func(args ...any) any),
	}
	a.RegisterCustomOperator("localeMatches", LocaleMatches)
	return a
}

func (a *JSONLogicAudience) RegisterCustomOperator(name string, logic func(args ...any) any) {
	a.customOps[name] = logic
}

func (a *JSONLogicAudience) Eligible(ctx context.Context, rule map[string]any, facts domain.Facts) (bool, error) {
	data := map[string]any{
		"customer": facts["customer"],
		"country":  facts["country"],
		"channel":  facts["channel"],
		"locale":   facts["locale"],
	}

	out, err := a.execute(rule, data)
	if err != nil {
		return false, err
	}
	matched, ok := out.(bool)
	return ok && matched, nil
}

func (a *JSONLogicAudience) execute(rule map[string]any, data map[string]any) (any, error) {
	for opName, fn := range a.customOps {
		if args, ok := rule[opName]; ok {
			return a.manualEval(args, data, fn), nil
		}
	}

	ruleJSON, _ := json.Marshal(rule)
	dataJSON, _ := json.Marshal(data)
	var result bytes.Buffer

	if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(dataJSON), &result); err != nil {
		return nil, fmt.Errorf("%w: audience rule: %v", domain.ErrDefinitionInvalid, err)
	}
	if result.Len() == 0 || result.String() == "null" {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal(result.Bytes(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *JSONLogicAudience) manualEval(args any, data map[string]any, fn func(args ...any) any) any {
	var params []any
	if list, ok := args.([]any); ok {
		for _, arg := range list {
			params = append(params, a.resolveVar(arg, data))
		}
	} else {
		params = append(params, a.resolveVar(args, data))
	}
	return fn(params...)
}

func (a *JSONLogicAudience) resolveVar(arg any, data map[string]any) any {
	m, ok := arg.(map[string]any)
	if !ok {
		return arg
	}
	path, ok := m["var"].(string)
	if !ok {
		return arg
	}

	var current any = data
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[part]
		if current == nil {
			return nil
		}
	}
	return current
}

// LocaleMatches reports whether a cart locale falls under a target
// language tag, prefix-wise: "en" covers "en-US" and "en-GB".
func LocaleMatches(args ...any) any {
	if len(args) < 2 {
		return false
	}
	locale, _ := args[0].(string)
	target, _ := args[1].(string)
	if locale == "" || target == "" {
		return false
	}
	return locale == target || strings.HasPrefix(locale, target+"-")
}
