package promotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Victor-armando18/service-catalog/internal/domain"
	"github.com/Victor-armando18/service-catalog/internal/expression"
	"github.com/Victor-armando18/service-catalog/internal/interfaces"
)

// DefaultMaxExecutions is the safety cap on repeated firing when a
// promotion carries no explicit times value.
const DefaultMaxExecutions = 999

// Outcome aggregates everything one engine invocation produced.
type Outcome struct {
	Discounts []domain.Discount
	Applied   []domain.AppliedPromotion
	Failures  []domain.PromotionFailure
	Consumed  map[string]int
}

// Engine evaluates promotions against cart facts, strictly in the
// order the caller supplies them. Each promotion runs its when/then
// loop to completion before the next one starts; the discounts
// accumulator carries across all of them.
type Engine struct {
	eval          *expression.Evaluator
	actions       map[string]ActionFunc
	audience      interfaces.AudienceFilter
	maxExecutions int
	log           zerolog.Logger
}

type EngineOption func(*Engine)

// WithAction registers an extra executor under name. Unknown names in
// then clauses surface as domain.ErrUnknownAction at run time.
func WithAction(name string, fn ActionFunc) EngineOption {
	return func(e *Engine) { e.actions[name] = fn }
}

// WithAudienceFilter enables the declarative eligibility prefilter for
// promotions that carry an audience rule.
func WithAudienceFilter(filter interfaces.AudienceFilter) EngineOption {
	return func(e *Engine) { e.audience = filter }
}

func WithMaxExecutions(limit int) EngineOption {
	return func(e *Engine) { e.maxExecutions = limit }
}

func WithEngineLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(eval *expression.Evaluator, opts ...EngineOption) *Engine {
	e := &Engine{
		eval:          eval,
		actions:       builtinActions(),
		maxExecutions: DefaultMaxExecutions,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs every active promotion against facts and returns the
// aggregated outcome. Facts are mutated in place (discounts list,
// consumed quantities); callers wanting their input untouched pass a
// deep copy, the way the usecase service does.
//
// Configuration problems (unknown action, bad params, failing audience
// rule) abort only the offending promotion and are reported in
// Outcome.Failures. Expression compile or runtime errors abort the
// whole run: no partial discount list is ever returned for those.
func (e *Engine) Apply(ctx context.Context, promotions []domain.Promotion, facts domain.Facts) (*Outcome, error) {
	run := &Run{
		Facts:    facts,
		Bindings: make(map[string]any),
		eval:     e.eval,
		newID:    uuid.NewString,
		consumed: make(map[string]int),
	}
	run.syncDiscounts()

	outcome := &Outcome{Consumed: run.consumed}
	for _, promo := range promotions {
		if !promo.Active {
			continue
		}
		if skip, failure := e.checkAudience(ctx, promo, run.Facts); failure != nil {
			outcome.Failures = append(outcome.Failures, *failure)
			continue
		} else if skip {
			continue
		}

		executions, err := e.runPromotion(promo, run)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownAction) || errors.Is(err, domain.ErrDefinitionInvalid) {
				e.log.Warn().Str("promotion", promo.ID).Err(err).Msg("promotion aborted")
				outcome.Failures = append(outcome.Failures, domain.PromotionFailure{
					PromotionID: promo.ID,
					Reason:      err.Error(),
				})
				continue
			}
			return nil, err
		}
		if executions > 0 {
			outcome.Applied = append(outcome.Applied, domain.AppliedPromotion{
				PromotionID: promo.ID,
				Name:        promo.Name,
				Executions:  executions,
			})
		}
	}

	outcome.Discounts = run.discounts
	return outcome, nil
}

func (e *Engine) checkAudience(ctx context.Context, promo domain.Promotion, facts domain.Facts) (skip bool, failure *domain.PromotionFailure) {
	if e.audience == nil || len(promo.Audience) == 0 {
		return false, nil
	}
	eligible, err := e.audience.Eligible(ctx, promo.Audience, facts)
	if err != nil {
		return false, &domain.PromotionFailure{
			PromotionID: promo.ID,
			Reason:      fmt.Sprintf("audience rule: %v", err),
		}
	}
	return !eligible, nil
}

// runPromotion drives one promotion's bounded loop: evaluate the when
// clauses in declaration order, binding each result before the next
// clause runs; on full match execute the then actions and re-evaluate,
// until a clause fails or the cap is reached.
func (e *Engine) runPromotion(promo domain.Promotion, run *Run) (int, error) {
	limit := promo.Times
	if limit <= 0 || limit > e.maxExecutions {
		limit = e.maxExecutions
	}
	run.PromotionID = promo.ID

	executions := 0
	for executions < limit {
		matched := true
		for _, clause := range promo.When {
			value, err := run.eval.Evaluate(clause.Source, run.Facts, run.Bindings)
			if err != nil {
				return executions, err
			}
			if !expression.IsMatch(value) {
				matched = false
				break
			}
			run.Bindings[clause.Bind] = value
		}
		if !matched {
			break
		}

		for _, action := range promo.Then {
			fn, ok := e.actions[action.Name]
			if !ok {
				return executions, fmt.Errorf("%w: %q (promotion %s)", domain.ErrUnknownAction, action.Name, promo.ID)
			}
			if err := fn(run, action.Params); err != nil {
				return executions, err
			}
		}
		executions++
	}

	if executions > 0 {
		e.log.Debug().Str("promotion", promo.ID).Int("executions", executions).Msg("promotion applied")
	}
	return executions, nil
}
