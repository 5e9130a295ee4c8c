package expression

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Victor-armando18/service-catalog/internal/domain"
)

// BindingKey is the reserved env key under which the bindings map is
// exposed to expressions. Clause results bound as "product" are read
// back as vars.product, so binding names never collide with fact
// fields.
const BindingKey = "vars"

// Function is a host function callable from expression text. It
// receives already-evaluated arguments.
type Function struct {
	Name string
	Fn   func(args ...any) (any, error)
}

// Evaluator compiles expression sources into reusable programs and
// caches them by source text for the process lifetime. Evaluation
// itself is stateless; the cache is the only shared mutable state and
// is safe for concurrent population.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	opts     []expr.Option
	compiles atomic.Int64
}

// New builds an evaluator with the given extension functions active
// for every expression it compiles.
func New(funcs ...Function) *Evaluator {
	e := &Evaluator{programs: make(map[string]*vm.Program)}
	for _, f := range funcs {
		e.opts = append(e.opts, expr.Function(f.Name, f.Fn))
	}
	return e
}

// RegisterFunction adds an extension function. It only affects
// expressions compiled afterwards, so register everything before the
// first evaluation, the way the engine constructors do.
func (e *Evaluator) RegisterFunction(name string, fn func(args ...any) (any, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = append(e.opts, expr.Function(name, fn))
}

// Program returns the cached compiled form of source, compiling it on
// first use. Compile failures wrap domain.ErrExpression.
func (e *Evaluator) Program(source string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[source]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if program, ok = e.programs[source]; ok {
		return program, nil
	}
	program, err := expr.Compile(source, e.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", domain.ErrExpression, source, err)
	}
	e.compiles.Add(1)
	e.programs[source] = program
	return program, nil
}

// Evaluate runs source against facts plus a bindings map exposed under
// BindingKey. A nil result means the query found nothing; that is
// distinct from false and both count as "no match" for rule purposes.
func (e *Evaluator) Evaluate(source string, facts domain.Facts, bindings map[string]any) (any, error) {
	program, err := e.Program(source)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(facts)+1)
	for k, v := range facts {
		env[k] = v
	}
	env[BindingKey] = bindings

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("%w: eval %q: %v", domain.ErrExpression, source, err)
	}
	return out, nil
}

// CompileCount reports how many distinct sources have been compiled.
func (e *Evaluator) CompileCount() int64 {
	return e.compiles.Load()
}

// IsMatch encodes the rule-match convention: nil (nothing found) and
// strict false both fail; every other value passes.
func IsMatch(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
