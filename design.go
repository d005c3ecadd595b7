package statepath

import (
	"fmt"
)

// GetFn produces a new scratch result from the current data, the payload of
// the in-flight event, and the previous result in the chain.
type GetFn[D any] func(data D, payload any, result any) any

// CondFn is a guard predicate. Implementations are assumed pure (spec §9):
// they must not mutate data, payload, or result.
type CondFn[D any] func(data D, payload any, result any) bool

// WaitFn returns a delay in seconds. Used by handler items' wait slot and
// by RepeatDesign.Delay.
type WaitFn[D any] func(data D, payload any, result any) float64

// ActionFn mutates the in-flight draft of data. draft is a pointer to a
// value copy of the instance's data made once per handler-chain
// evaluation; the copy is committed back to the instance only if the
// chain runs to completion (or up to the point a transition is taken).
type ActionFn[D any] func(draft *D, payload any, result any)

// ToFn resolves a transition target path.
type ToFn[D any] func(data D, payload any, result any) string

// SendSpec is an event produced by a handler item's send/elseSend slot.
type SendSpec struct {
	Event   string
	Payload any
}

// SendFn produces an event to enqueue after the current event finishes
// draining.
type SendFn[D any] func(data D, payload any, result any) SendSpec

// HandlerItem is one unit of a handler chain: an ordered get pipeline, a
// guard set, an optional wait, and the do/send/to actions taken on pass or
// on fail (else*). SecretlyDo/SecretlyTo behave like Do/To but are excluded
// from the did-action/did-transition bookkeeping that decides whether
// subscribers are notified.
type HandlerItem[D any] struct {
	Get    []GetFn[D]
	If     []CondFn[D]
	Unless []CondFn[D]
	IfAny  []CondFn[D]
	Wait   WaitFn[D]

	Do         []ActionFn[D]
	Send       []SendFn[D]
	To         []ToFn[D]
	SecretlyDo []ActionFn[D]
	SecretlyTo []ToFn[D]

	ElseDo   []ActionFn[D]
	ElseSend []SendFn[D]
	ElseTo   []ToFn[D]
}

// HandlerChain is an ordered sequence of handler items, evaluated in order
// by the handler evaluator (eval.go).
type HandlerChain[D any] []HandlerItem[D]

// AsyncDesign describes an awaitable effect. Await runs on its own
// goroutine; its result or error routes to OnResolve/OnReject without
// touching the main send-queue (spec §4.F).
type AsyncDesign[D any] struct {
	Await     func(data D, payload any, result any) (any, error)
	OnResolve any // handler slot
	OnReject  any // handler slot, optional
}

// RepeatDesign describes a per-state repeat loop. A nil Delay means
// per-frame (driven by Instance's frame ticker); a non-nil Delay is
// clamped to max(1/60s, delay*1000ms) per spec §4.F / §9(b).
type RepeatDesign[D any] struct {
	Delay    WaitFn[D] // optional
	OnRepeat any       // handler slot
}

// StateDesign describes one node of the design's state tree. A node with a
// non-empty Initial is a branch; a node with States but empty Initial is
// parallel; a node with no States is a leaf.
type StateDesign[D any] struct {
	Name    string
	Initial string
	States  []*StateDesign[D]

	On      map[string]any // event name -> handler slot
	OnEvent any
	OnEnter any
	OnExit  any

	Repeat *RepeatDesign[D]
	Async  *AsyncDesign[D]
}

// Library holds named results/conditions/actions/times referenced by
// string shorthand in a Design's handler slots. Unknown references are a
// construction-time *DesignError.
type Library[D any] struct {
	Results    map[string]GetFn[D]
	Conditions map[string]CondFn[D]
	Actions    map[string]ActionFn[D]
	Times      map[string]WaitFn[D]
}

func (lib *Library[D]) lookup(name string) (HandlerItem[D], bool) {
	if lib == nil {
		return HandlerItem[D]{}, false
	}
	if fn, ok := lib.Actions[name]; ok {
		return HandlerItem[D]{Do: []ActionFn[D]{fn}}, true
	}
	if fn, ok := lib.Conditions[name]; ok {
		return HandlerItem[D]{If: []CondFn[D]{fn}}, true
	}
	if fn, ok := lib.Results[name]; ok {
		return HandlerItem[D]{Get: []GetFn[D]{fn}}, true
	}
	if fn, ok := lib.Times[name]; ok {
		return HandlerItem[D]{Wait: fn}, true
	}
	return HandlerItem[D]{}, false
}

// Design is the declarative value describing a statechart's shape: the
// root state's own slots (it is itself a node), its Data's zero/initial
// value, the id prefix, computed Values, and the Library that resolves
// string shorthand.
type Design[D any] struct {
	ID      string
	Data    D
	Initial string
	States  []*StateDesign[D]

	On      map[string]any
	OnEvent any
	OnEnter any
	OnExit  any

	Repeat *RepeatDesign[D]
	Async  *AsyncDesign[D]

	// Values computes named derived values from data on every
	// notification (spec §4.E); the latest computed map is exposed on
	// Snapshot.Values.
	Values  map[string]func(data D) any
	Library *Library[D]
}

// normalizeSlot expands a handler slot's shorthand form into a
// HandlerChain. Accepted shorthand (spec §4.A):
//
//   - nil              -> empty chain
//   - ActionFn[D]       -> one item with Do = [fn]
//   - string            -> one item resolved from the Library
//   - HandlerItem[D]    -> one item, as-is
//   - HandlerChain[D]   -> as-is
//   - []any             -> concatenation of each element's normalization
func normalizeSlot[D any](lib *Library[D], path string, slot any) (HandlerChain[D], error) {
	switch v := slot.(type) {
	case nil:
		return nil, nil
	case HandlerChain[D]:
		return v, nil
	case HandlerItem[D]:
		return HandlerChain[D]{v}, nil
	case ActionFn[D]:
		return HandlerChain[D]{{Do: []ActionFn[D]{v}}}, nil
	case func(*D, any, any):
		return HandlerChain[D]{{Do: []ActionFn[D]{v}}}, nil
	case string:
		item, ok := lib.lookup(v)
		if !ok {
			return nil, &DesignError{Path: path, Reason: fmt.Sprintf("unknown library reference %q", v)}
		}
		return HandlerChain[D]{item}, nil
	case []any:
		var chain HandlerChain[D]
		for i, el := range v {
			sub, err := normalizeSlot[D](lib, fmt.Sprintf("%s[%d]", path, i), el)
			if err != nil {
				return nil, err
			}
			chain = append(chain, sub...)
		}
		return chain, nil
	default:
		return nil, &DesignError{Path: path, Reason: fmt.Sprintf("unsupported handler slot type %T", slot)}
	}
}

// Validate walks the design tree and reports the first structural problem
// found: duplicate state names under one parent, an Initial that does not
// name a declared child, or a handler slot whose shorthand cannot be
// normalized against the Library. It does not resolve transition target
// paths — those are checked lazily the first time they're taken, per
// spec §7 (UnknownTarget is a runtime condition, not a construction one).
func (d *Design[D]) Validate() error {
	for event, slot := range d.On {
		if _, err := normalizeSlot[D](d.Library, "on."+event, slot); err != nil {
			return err
		}
	}
	for _, slot := range []struct {
		name string
		v    any
	}{{"onEvent", d.OnEvent}, {"onEnter", d.OnEnter}, {"onExit", d.OnExit}} {
		if _, err := normalizeSlot[D](d.Library, slot.name, slot.v); err != nil {
			return err
		}
	}
	if d.Repeat != nil {
		if _, err := normalizeSlot[D](d.Library, "repeat.onRepeat", d.Repeat.OnRepeat); err != nil {
			return err
		}
	}
	if d.Async != nil {
		if d.Async.Await == nil {
			return &DesignError{Path: "async.await", Reason: "await function is required"}
		}
		if _, err := normalizeSlot[D](d.Library, "async.onResolve", d.Async.OnResolve); err != nil {
			return err
		}
		if _, err := normalizeSlot[D](d.Library, "async.onReject", d.Async.OnReject); err != nil {
			return err
		}
	}
	return validateStates(d.Library, "", d.States, d.Initial, true)
}

func validateStates[D any](lib *Library[D], parentPath string, states []*StateDesign[D], initial string, requireInitialIfChildren bool) error {
	seen := make(map[string]bool, len(states))
	for _, s := range states {
		if s.Name == "" {
			return &DesignError{Path: parentPath, Reason: "state name must not be empty"}
		}
		if seen[s.Name] {
			return &DesignError{Path: parentPath, Reason: fmt.Sprintf("duplicate state name %q", s.Name)}
		}
		seen[s.Name] = true
	}
	if requireInitialIfChildren && initial != "" && !seen[initial] {
		return &DesignError{Path: parentPath, Reason: fmt.Sprintf("initial %q is not a declared child", initial)}
	}
	for _, s := range states {
		path := parentPath + "." + s.Name
		for event, slot := range s.On {
			if _, err := normalizeSlot[D](lib, path+".on."+event, slot); err != nil {
				return err
			}
		}
		for _, sl := range []struct {
			name string
			v    any
		}{{"onEvent", s.OnEvent}, {"onEnter", s.OnEnter}, {"onExit", s.OnExit}} {
			if _, err := normalizeSlot[D](lib, path+"."+sl.name, sl.v); err != nil {
				return err
			}
		}
		if s.Repeat != nil {
			if _, err := normalizeSlot[D](lib, path+".repeat.onRepeat", s.Repeat.OnRepeat); err != nil {
				return err
			}
		}
		if s.Async != nil {
			if s.Async.Await == nil {
				return &DesignError{Path: path + ".async.await", Reason: "await function is required"}
			}
			if _, err := normalizeSlot[D](lib, path+".async.onResolve", s.Async.OnResolve); err != nil {
				return err
			}
			if _, err := normalizeSlot[D](lib, path+".async.onReject", s.Async.OnReject); err != nil {
				return err
			}
		}
		if err := validateStates(lib, path, s.States, s.Initial, true); err != nil {
			return err
		}
	}
	return nil
}
