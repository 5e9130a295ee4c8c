package domain

import "errors"

// Core failure taxonomy. Callers discriminate with errors.Is; every
// component wraps these with fmt.Errorf("%w: ...") for context.
var (
	// ErrPriceNotFound means no predicate matched for a SKU. The
	// surrounding system treats it as "do not add the line".
	ErrPriceNotFound = errors.New("no price matched")

	// ErrExpression covers malformed or runtime-failing expression
	// text. Always fatal to the current evaluation, never swallowed.
	ErrExpression = errors.New("expression failed")

	// ErrUnknownAction is a configuration error: a then clause names
	// an action no executor is registered for. Fatal to that one
	// promotion, not to the run.
	ErrUnknownAction = errors.New("unknown promotion action")

	// ErrDefinitionInvalid flags a malformed promotion or price
	// definition (bad when mapping, missing action name, bad params).
	ErrDefinitionInvalid = errors.New("invalid definition")
)
