package statepath

import (
	"time"
)

// evalCtx carries the payload/result pair threaded through one event
// dispatch's full chain cascade (the main on[event]/onEvent chain plus
// any onExit/onEnter chains a resulting transition runs). Per §9's "get
// result scope" note, result persists across chains within one dispatch
// and is reset only when a new event begins draining — not per chain.
type evalCtx struct {
	payload any
	result  any

	// dry suppresses the enqueueInternal side effect of a send/elseSend
	// slot, for evaluations that must not mutate the instance.
	dry bool
}

// pendingTransition is what runChain reports when an item's to/elseTo (or
// secretlyTo) slot fires and the chain terminates early (spec §4.D step 4).
type pendingTransition struct {
	raw    string
	secret bool
}

// runChain evaluates a handler chain against draft, mutating it in place
// and threading ec.result across items. It returns whether any ordinary
// (non-secret) do/elseDo ran, and a pending transition if one was taken.
// The caller is responsible for committing draft and for invoking
// performTransition when a transition is pending.
func runChain[D any](in *Instance[D], ec *evalCtx, draft *D, chain HandlerChain[D]) (didAction bool, pending *pendingTransition, err error) {
	for _, item := range chain {
		for _, get := range item.Get {
			ec.result = safeCallGet(get, *draft, ec.payload, ec.result)
		}

		passed := evalGuards(item, *draft, ec.payload, ec.result)

		if item.Wait != nil {
			seconds := item.Wait(*draft, ec.payload, ec.result)
			if seconds > 0 {
				time.Sleep(time.Duration(seconds * float64(time.Second)))
			}
		}

		if passed {
			if runActions(item.Do, draft, ec.payload, ec.result) {
				didAction = true
			}
			runActions(item.SecretlyDo, draft, ec.payload, ec.result)

			for _, sendFn := range item.Send {
				spec := sendFn(*draft, ec.payload, ec.result)
				if !ec.dry {
					in.enqueueInternal(spec.Event, spec.Payload)
				}
			}

			if target, ok := firstTarget(item.To, *draft, ec.payload, ec.result); ok {
				return didAction, &pendingTransition{raw: target}, nil
			}
			if target, ok := firstTarget(item.SecretlyTo, *draft, ec.payload, ec.result); ok {
				return didAction, &pendingTransition{raw: target, secret: true}, nil
			}
		} else {
			if runActions(item.ElseDo, draft, ec.payload, ec.result) {
				didAction = true
			}
			for _, sendFn := range item.ElseSend {
				spec := sendFn(*draft, ec.payload, ec.result)
				if !ec.dry {
					in.enqueueInternal(spec.Event, spec.Payload)
				}
			}
			if target, ok := firstTarget(item.ElseTo, *draft, ec.payload, ec.result); ok {
				return didAction, &pendingTransition{raw: target}, nil
			}
		}
	}
	return didAction, nil, nil
}

func safeCallGet[D any](fn GetFn[D], data D, payload, result any) (out any) {
	out = fn(data, payload, result)
	return
}

func evalGuards[D any](item HandlerItem[D], data D, payload, result any) bool {
	for _, cond := range item.If {
		if !cond(data, payload, result) {
			return false
		}
	}
	for _, cond := range item.Unless {
		if cond(data, payload, result) {
			return false
		}
	}
	if len(item.IfAny) > 0 {
		any := false
		for _, cond := range item.IfAny {
			if cond(data, payload, result) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func runActions[D any](actions []ActionFn[D], draft *D, payload, result any) bool {
	ran := false
	for _, act := range actions {
		act(draft, payload, result)
		ran = true
	}
	return ran
}

func firstTarget[D any](fns []ToFn[D], data D, payload, result any) (string, bool) {
	for _, fn := range fns {
		if target := fn(data, payload, result); target != "" {
			return target, true
		}
	}
	return "", false
}

// performTransition runs the full exit/enter cascade for a transition
// target, per spec §4.D "Transition execution" and §4.C's
// activate/deactivate. counter is the loop-guard counter to check and
// advance; it is shared across a main-drain event (so nested transitions
// from onExit/onEnter count against it) but is a fresh, local counter for
// off-thread repeat/async chains (spec §4.F: "they do not consume slots
// in the main send-queue counter").
func (in *Instance[D]) performTransition(ec *evalCtx, counter *int, raw string) error {
	if *counter >= maxTransitions {
		loopErr := &LoopError{Count: *counter}
		in.logger.Error("transition loop detected", "count", *counter, "instance", in.id)
		if in.devMode {
			panic(loopErr)
		}
		return loopErr
	}

	target, isPrevious, isRestore, err := resolveTarget(in.root, raw)
	if err != nil {
		in.logger.Warn("unknown transition target", "target", raw, "instance", in.id)
		if in.devMode {
			panic(err)
		}
		return nil // release: transition skipped
	}

	before := allActive(in.root)
	deactivate(in.root)
	down := pathDown(in.root, target)
	activate(in.root, down, modeFor(isPrevious, isRestore))
	after := allActive(in.root)

	*counter++

	exited := diffOrdered(before, after)
	entered := diffOrdered(after, before)

	for _, n := range exited {
		n.stopEffects()
	}
	for _, n := range exited {
		draft := in.data
		_, pending, err := runChain(in, ec, &draft, n.OnExit)
		if err != nil {
			return err
		}
		in.data = draft
		if pending != nil {
			return in.performTransition(ec, counter, pending.raw)
		}
	}

	for _, n := range entered {
		if n.Repeat != nil {
			in.startRepeat(n)
		}
		draft := in.data
		_, pending, err := runChain(in, ec, &draft, n.OnEnter)
		if err != nil {
			return err
		}
		in.data = draft
		if pending != nil {
			return in.performTransition(ec, counter, pending.raw)
		}
		if n.Async != nil {
			in.startAsync(n)
		}
	}

	return nil
}

// diffOrdered returns the elements of a that are not in b, preserving a's
// order (used for both "exited = before \ after" and "entered = after \
// before" per spec §4.D).
func diffOrdered[D any](a, b []*StateNode[D]) []*StateNode[D] {
	inB := make(map[*StateNode[D]]bool, len(b))
	for _, n := range b {
		inB[n] = true
	}
	var out []*StateNode[D]
	for _, n := range a {
		if !inB[n] {
			out = append(out, n)
		}
	}
	return out
}
