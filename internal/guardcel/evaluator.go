// Package guardcel compiles CEL expressions into statepath condition and
// result functions, for designs that want string guard/get expressions
// rather than Go closures in their Library.
package guardcel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/latticeform/statepath"
)

// Evaluator compiles and caches CEL programs keyed by expression text.
// Every expression sees three variables: data (the statechart's Data,
// converted via the toData function given to NewEvaluator), payload (the
// in-flight event's payload) and result (the handler chain's current
// result).
type Evaluator[D any] struct {
	env     *cel.Env
	toData  func(D) any
	cache   map[string]cel.Program
	mu      sync.RWMutex
}

// NewEvaluator builds an Evaluator. toData converts a Design[D]'s Data
// into the plain value CEL expressions see as the "data" variable —
// typically a struct-to-map conversion, since CEL's dynamic typing works
// best against maps and primitives rather than arbitrary Go structs.
func NewEvaluator[D any](toData func(D) any) (*Evaluator[D], error) {
	env, err := cel.NewEnv(
		cel.Variable("data", cel.DynType),
		cel.Variable("payload", cel.DynType),
		cel.Variable("result", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("guardcel: creating CEL env: %w", err)
	}
	return &Evaluator[D]{env: env, toData: toData, cache: make(map[string]cel.Program)}, nil
}

func (e *Evaluator[D]) compile(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("guardcel: compiling %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("guardcel: building program for %q: %w", expr, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func (e *Evaluator[D]) eval(expr string, data D, payload, result any) (ref cel.Val, err error) {
	prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.Eval(map[string]any{
		"data":    e.toData(data),
		"payload": payload,
		"result":  result,
	})
	if err != nil {
		return nil, fmt.Errorf("guardcel: evaluating %q: %w", expr, err)
	}
	return out, nil
}

// Condition compiles expr once and returns a statepath.CondFn that
// re-evaluates it against live data/payload/result on every call. The
// returned function panics if expr's compiled program ever fails to
// evaluate or does not produce a bool — treated as a design error that
// should surface during development, same posture as an unresolved
// Library reference.
func (e *Evaluator[D]) Condition(expr string) statepath.CondFn[D] {
	return func(data D, payload, result any) bool {
		out, err := e.eval(expr, data, payload, result)
		if err != nil {
			panic(fmt.Errorf("guardcel: condition %q: %w", expr, err))
		}
		b, ok := out.Value().(bool)
		if !ok {
			panic(fmt.Errorf("guardcel: condition %q did not evaluate to bool, got %T", expr, out.Value()))
		}
		return b
	}
}

// Result compiles expr once and returns a statepath.GetFn producing its
// raw CEL value.
func (e *Evaluator[D]) Result(expr string) statepath.GetFn[D] {
	return func(data D, payload, result any) any {
		out, err := e.eval(expr, data, payload, result)
		if err != nil {
			panic(fmt.Errorf("guardcel: result %q: %w", expr, err))
		}
		return out.Value()
	}
}

// CompileConditions compiles a whole map of name->expression into a
// Library.Conditions-shaped map in one call, for merging into a
// statepath.Library[D].
func (e *Evaluator[D]) CompileConditions(exprs map[string]string) map[string]statepath.CondFn[D] {
	out := make(map[string]statepath.CondFn[D], len(exprs))
	for name, expr := range exprs {
		out[name] = e.Condition(expr)
	}
	return out
}
