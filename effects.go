package statepath

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// frameInterval approximates a browser's requestAnimationFrame cadence
// for states whose Repeat has no explicit Delay (spec §4.F "per-frame").
const frameInterval = time.Second / 60

// minRepeatIntervalMillis is the clamp floor for spec §9(b): an explicit
// delay is read as seconds and converted to milliseconds (delay*1000),
// then floored at one frame, 1000/60 ms (about 16.7 ms). The floor is one
// sixtieth of a second, not one sixtieth of a millisecond — see DESIGN.md.
const minRepeatIntervalMillis = 1000.0 / 60.0

// startRepeat launches the ticking goroutine for a just-entered state
// that declared Repeat. Each tick hands the onRepeat chain back to the
// owning drain goroutine via cmdCh so it runs under the same single-
// threaded-cooperative discipline as everything else; it never mutates
// Instance state directly.
func (in *Instance[D]) startRepeat(n *StateNode[D]) {
	stopCh := make(chan struct{})
	var once sync.Once
	n.stopRepeat = func() { once.Do(func() { close(stopCh) }) }

	go func() {
		for {
			wait := in.repeatInterval(n, stopCh)
			if wait < 0 {
				return
			}
			select {
			case <-time.After(wait):
			case <-stopCh:
				return
			case <-in.closeCh:
				return
			}

			done := make(chan struct{})
			cmd := func(inst *Instance[D]) {
				defer close(done)
				defer func() {
					if r := recover(); r != nil {
						inst.logger.Error("repeat handler panicked", "state", n.Path, "recovered", r)
					}
				}()
				if !n.Active {
					return
				}
				ec := &evalCtx{}
				counter := 0
				draft := inst.data
				_, pending, err := runChain(inst, ec, &draft, n.Repeat.onRepeat)
				inst.data = draft
				if err != nil {
					inst.logger.Error("repeat handler failed", "state", n.Path, "error", err)
					return
				}
				if pending != nil {
					if err := inst.performTransition(ec, &counter, pending.raw); err != nil {
						inst.logger.Error("repeat transition failed", "state", n.Path, "error", err)
						return
					}
				}
				inst.notify()
			}
			select {
			case in.cmdCh <- cmd:
			case <-stopCh:
				return
			case <-in.closeCh:
				return
			}
			select {
			case <-done:
			case <-in.closeCh:
				return
			}
		}
	}()
}

// repeatInterval resolves the wait before the next repeat tick, reading
// current data through the owning goroutine so Repeat.Delay sees a
// consistent value. Returns -1 if stopCh fires while waiting for that
// read.
func (in *Instance[D]) repeatInterval(n *StateNode[D], stopCh <-chan struct{}) time.Duration {
	if n.Repeat.delay == nil {
		return frameInterval
	}
	out := make(chan time.Duration, 1)
	cmd := func(inst *Instance[D]) {
		seconds := n.Repeat.delay(inst.data, nil, nil)
		millis := seconds * 1000
		if millis < minRepeatIntervalMillis {
			millis = minRepeatIntervalMillis
		}
		out <- time.Duration(millis * float64(time.Millisecond))
	}
	select {
	case in.cmdCh <- cmd:
	case <-stopCh:
		return -1
	case <-in.closeCh:
		return -1
	}
	select {
	case d := <-out:
		return d
	case <-in.closeCh:
		return -1
	}
}

// startAsync launches the await goroutine for a just-entered state that
// declared Async. The await itself runs off the drain goroutine (it may
// block on I/O); its resolution is handed back through cmdCh, same as
// startRepeat, so onResolve/onReject run under the normal single-
// threaded-cooperative discipline. A correlation id ties the two log
// lines together for states whose await overlaps other activity.
func (in *Instance[D]) startAsync(n *StateNode[D]) {
	stopped := make(chan struct{})
	var once sync.Once
	n.stopAsync = func() { once.Do(func() { close(stopped) }) }

	corrID := uuid.New().String()

	dataCh := make(chan D, 1)
	select {
	case in.cmdCh <- func(inst *Instance[D]) { dataCh <- inst.data }:
	case <-in.closeCh:
		return
	}

	go func() {
		var data D
		select {
		case data = <-dataCh:
		case <-stopped:
			return
		case <-in.closeCh:
			return
		}

		in.logger.Debug("async await started", "state", n.Path, "correlation_id", corrID)
		result, awaitErr := n.Async.await(data, nil, nil)

		select {
		case <-stopped:
			return
		default:
		}

		done := make(chan struct{})
		cmd := func(inst *Instance[D]) {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					inst.logger.Error("async handler panicked", "state", n.Path, "correlation_id", corrID, "recovered", r)
				}
			}()
			select {
			case <-stopped:
				return
			default:
			}
			if !n.Active {
				return
			}

			ec := &evalCtx{}
			var chain HandlerChain[D]
			if awaitErr != nil {
				ec.result = awaitErr
				chain = n.Async.onReject
				if len(chain) == 0 {
					inst.logger.Debug("async rejection had no handler", "state", n.Path, "correlation_id", corrID, "error", awaitErr)
					return
				}
			} else {
				ec.result = result
				chain = n.Async.onResolve
				if len(chain) == 0 {
					return
				}
			}

			counter := 0
			draft := inst.data
			_, pending, err := runChain(inst, ec, &draft, chain)
			inst.data = draft
			if err != nil {
				inst.logger.Error("async handler failed", "state", n.Path, "correlation_id", corrID, "error", err)
				return
			}
			if pending != nil {
				if err := inst.performTransition(ec, &counter, pending.raw); err != nil {
					inst.logger.Error("async transition failed", "state", n.Path, "correlation_id", corrID, "error", err)
					return
				}
			}
			inst.notify()
		}

		select {
		case in.cmdCh <- cmd:
		case <-stopped:
			return
		case <-in.closeCh:
			return
		}
		select {
		case <-done:
		case <-in.closeCh:
		}
	}()
}
