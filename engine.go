package statepath

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

var instanceSeq uint64

// Snapshot is the plain-data view of an instance at a point in time, used
// for subscriber notification, persistence, and visualization — anything
// that must not hold a reference to the live generic Instance.
type Snapshot struct {
	InstanceID string
	Active     []string
	Data       any
	Values     map[string]any
}

// Subscriber receives a Snapshot after any event that changed data or the
// active-state set (spec §6 OnUpdate).
type Subscriber func(Snapshot)

type subscription struct {
	id uint64
	fn Subscriber
}

type queuedEvent struct {
	event   string
	payload any
	done    chan error
}

// Instance is a live, running statechart built from a Design. All
// mutation happens on a single owned goroutine (loop), so the exported
// methods are safe to call from any goroutine: they hand off to that
// goroutine over cmdCh and, where a result is needed, wait on a
// per-call channel. This is the Go expression of spec §5's
// single-threaded-cooperative send-queue: no mutex guards Instance
// state because exactly one goroutine ever touches it.
type Instance[D any] struct {
	id     string
	design *Design[D]
	root   *StateNode[D]
	data   D

	logger *slog.Logger
	devMode bool

	persister  Persister
	publisher  EventPublisher
	eventSource EventSource
	visualizer Visualizer
	registry   Registry

	cmdCh chan func(*Instance[D])
	queue []queuedEvent

	subs   []subscription
	subSeq uint64

	closed  bool
	closeCh chan struct{}
}

// NewInstance builds a state tree from design, validates it, and starts
// the instance's drain goroutine with its initial state activated.
// Construction-time problems (bad handler-slot shorthand, duplicate
// state names, a dangling Initial) are reported as a *DesignError before
// any goroutine starts.
func NewInstance[D any](design *Design[D], opts ...Option[D]) (*Instance[D], error) {
	if err := design.Validate(); err != nil {
		return nil, err
	}

	id := design.ID
	if id == "" {
		id = fmt.Sprintf("state_%d", atomic.AddUint64(&instanceSeq, 1))
	}
	id = "#" + id

	root, err := buildTree[D](id, design)
	if err != nil {
		return nil, err
	}

	in := &Instance[D]{
		id:      id,
		design:  design,
		root:    root,
		data:    design.Data,
		logger:  slog.Default(),
		cmdCh:   make(chan func(*Instance[D]), 1024),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}

	go in.loop()

	done := make(chan error, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		var initErr error
		defer func() {
			if r := recover(); r != nil {
				initErr = &HandlerError{State: inst.id, Event: "<init>", Err: r}
			}
			done <- initErr
		}()
		ec := &evalCtx{}
		counter := 0
		activate(inst.root, nil, histNone)
		for _, n := range allActive(inst.root) {
			if n.Repeat != nil {
				inst.startRepeat(n)
			}
			if n.Async != nil {
				inst.startAsync(n)
			}
			if n.OnEnter != nil {
				draft := inst.data
				_, pending, err := runChain(inst, ec, &draft, n.OnEnter)
				inst.data = draft
				if err != nil {
					initErr = err
					return
				}
				if pending != nil {
					if err := inst.performTransition(ec, &counter, pending.raw); err != nil {
						initErr = err
						return
					}
				}
			}
		}
		inst.notify()
	}
	if err := <-done; err != nil {
		return nil, err
	}

	if in.eventSource != nil {
		go in.pumpEventSource()
	}
	if in.registry != nil {
		in.registry.Register(in.id, in)
	}

	return in, nil
}

func (in *Instance[D]) loop() {
	for {
		select {
		case f := <-in.cmdCh:
			f(in)
		case <-in.closeCh:
			return
		}
	}
}

func (in *Instance[D]) pumpEventSource() {
	events := in.eventSource.Events(in.id)
	for {
		select {
		case spec, ok := <-events:
			if !ok {
				return
			}
			_ = in.Send(spec.Event, spec.Payload)
		case <-in.closeCh:
			return
		}
	}
}

// Send enqueues event for processing and blocks until it (and, since the
// engine is strictly FIFO, every event ahead of it) has finished draining,
// together with every event its handlers sent in turn.
func (in *Instance[D]) Send(event string, payload any) error {
	closedErr := fmt.Errorf("statepath: instance %s is closed", in.id)
	select {
	case <-in.closeCh:
		return closedErr
	default:
	}
	done := make(chan error, 1)
	qe := queuedEvent{event: event, payload: payload, done: done}
	select {
	case in.cmdCh <- func(inst *Instance[D]) { inst.drainFrom(qe) }:
	case <-in.closeCh:
		return closedErr
	}
	select {
	case err := <-done:
		return err
	case <-in.closeCh:
		return closedErr
	}
}

// enqueueInternal is called from within a running handler-chain
// evaluation (on the owning goroutine already) to queue an event
// produced by a send/elseSend slot. It is processed after the chain
// currently draining finishes, per spec §4.D.
func (in *Instance[D]) enqueueInternal(event string, payload any) {
	in.queue = append(in.queue, queuedEvent{event: event, payload: payload})
}

// drainFrom processes head and then every event enqueueInternal added
// while processing it, in FIFO order, before returning control to the
// cmdCh loop — this is the instance's "drain" (spec §5). head's caller is
// released only once the whole drain is done. A *LoopError ends the drain
// early: the events still queued behind it are dropped.
func (in *Instance[D]) drainFrom(head queuedEvent) {
	in.queue = append([]queuedEvent{head}, in.queue...)
	var headErr error
	for len(in.queue) > 0 {
		qe := in.queue[0]
		in.queue = in.queue[1:]

		ec := &evalCtx{payload: qe.payload}
		counter := 0
		didAction, didTransition, err := in.handleEvent(ec, &counter, qe.event)
		if qe.done != nil {
			headErr = err
		}
		if err != nil {
			in.logger.Error("event handling failed", "event", qe.event, "instance", in.id, "error", err)
			if _, isLoop := err.(*LoopError); isLoop {
				in.queue = nil
				break
			}
			continue
		}
		if didAction || didTransition {
			in.notify()
		}
	}
	if head.done != nil {
		head.done <- headErr
	}
}

// handleEvent routes event through the active-state tree, outermost node
// first (spec §4.E): a node's own on[event] runs, then its onEvent, and
// only then does dispatch recurse into its active children. A transition
// at any step aborts the rest of that node's dispatch — its children (or,
// for on[event] vs. onEvent, its own remaining chain) are not visited,
// since the tree may no longer look the way it did a moment ago.
func (in *Instance[D]) handleEvent(ec *evalCtx, counter *int, event string) (didAction, didTransition bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{State: in.id, Event: event, Err: r}
			in.logger.Error("handler panicked", "event", event, "instance", in.id, "recovered", r)
		}
	}()
	return in.handleEventOnState(ec, counter, in.root, event)
}

func (in *Instance[D]) handleEventOnState(ec *evalCtx, counter *int, n *StateNode[D], event string) (didAction, didTransition bool, err error) {
	if chain, ok := n.On[event]; ok && len(chain) > 0 {
		a, transitioned, counted, rerr := in.runNodeChain(ec, counter, chain)
		didAction = didAction || a
		didTransition = didTransition || counted
		if rerr != nil {
			return didAction, didTransition, rerr
		}
		if transitioned {
			return didAction, didTransition, nil
		}
	}

	if len(n.OnEvent) > 0 {
		a, transitioned, counted, rerr := in.runNodeChain(ec, counter, n.OnEvent)
		didAction = didAction || a
		didTransition = didTransition || counted
		if rerr != nil {
			return didAction, didTransition, rerr
		}
		if transitioned {
			return didAction, didTransition, nil
		}
	}

	// For each active child, in declaration order (a branch node has
	// exactly one, a parallel node has every child, a leaf has none);
	// stop as soon as one of them transitions, since the active set it
	// left behind may no longer match what the remaining children expect.
	for _, c := range n.Children {
		if !c.Active {
			continue
		}
		a, t, rerr := in.handleEventOnState(ec, counter, c, event)
		didAction = didAction || a
		didTransition = didTransition || t
		if rerr != nil {
			return didAction, didTransition, rerr
		}
		if t {
			break
		}
	}

	return didAction, didTransition, nil
}

// runNodeChain runs one of a node's own handler chains (on[event] or
// onEvent) to completion, committing the draft and performing any
// transition it takes. transitioned reports whether a transition fired at
// all (secret or not) — the caller must stop at that node regardless,
// since the tree changed; counted reports whether it should count toward
// the dispatch's didTransition (it does not for secretlyTo, spec §4.D).
func (in *Instance[D]) runNodeChain(ec *evalCtx, counter *int, chain HandlerChain[D]) (didAction, transitioned, counted bool, err error) {
	draft := in.data
	ranAction, pending, err := runChain(in, ec, &draft, chain)
	in.data = draft
	if err != nil {
		return ranAction, false, false, err
	}
	if pending != nil {
		if err := in.performTransition(ec, counter, pending.raw); err != nil {
			return ranAction, false, false, err
		}
		return ranAction, true, !pending.secret, nil
	}
	return ranAction, false, false, nil
}

// notify builds a Snapshot and delivers it to subscribers, the
// publisher, the persister, and the visualizer, in that order.
func (in *Instance[D]) notify() {
	snap := in.snapshot()
	for _, sub := range in.subs {
		sub.fn(snap)
	}
	if in.publisher != nil {
		if err := in.publisher.Publish(in.id, snap); err != nil {
			in.logger.Warn("publish failed", "instance", in.id, "error", err)
		}
	}
	if in.persister != nil {
		if err := in.persister.Save(in.id, snap); err != nil {
			in.logger.Warn("persist failed", "instance", in.id, "error", err)
		}
	}
	if in.visualizer != nil {
		out, err := in.visualizer.Export(snap)
		if err != nil {
			in.logger.Warn("visualize failed", "instance", in.id, "error", err)
		} else {
			in.logger.Debug("visualization rendered", "instance", in.id, "render", string(out))
		}
	}
}

// snapshot builds the plain-data view of the instance, recomputing
// Values from the design's value functions against the current data
// (spec §4.E "Notification": "values are recomputed by calling each
// config.values[k](data)").
func (in *Instance[D]) snapshot() Snapshot {
	active := allActive(in.root)
	paths := make([]string, len(active))
	for i, n := range active {
		paths[i] = n.Path
	}
	var values map[string]any
	if len(in.design.Values) > 0 {
		values = make(map[string]any, len(in.design.Values))
		for k, fn := range in.design.Values {
			values[k] = fn(in.data)
		}
	}
	return Snapshot{InstanceID: in.id, Active: paths, Data: in.data, Values: values}
}

// OnUpdate registers fn to run on every notify. The returned func
// unsubscribes it. Both take effect on the owning goroutine, so they are
// safe to call concurrently with an in-flight Send.
func (in *Instance[D]) OnUpdate(fn Subscriber) (unsubscribe func()) {
	doneAdd := make(chan uint64, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		inst.subSeq++
		id := inst.subSeq
		inst.subs = append(inst.subs, subscription{id: id, fn: fn})
		doneAdd <- id
	}
	id := <-doneAdd
	return func() {
		done := make(chan struct{}, 1)
		in.cmdCh <- func(inst *Instance[D]) {
			for i, s := range inst.subs {
				if s.id == id {
					inst.subs = append(inst.subs[:i], inst.subs[i+1:]...)
					break
				}
			}
			done <- struct{}{}
		}
		<-done
	}
}

// GetUpdate returns a consistent Snapshot of the instance's current state.
func (in *Instance[D]) GetUpdate() Snapshot {
	out := make(chan Snapshot, 1)
	in.cmdCh <- func(inst *Instance[D]) { out <- inst.snapshot() }
	return <-out
}

// Close stops the instance's drain goroutine and every running repeat/
// async effect. Sent events still in flight when Close is called are
// dropped. Close is an operational convenience beyond what the spec
// requires (it describes teardown only as "release all references");
// it exists because a Go goroutine, unlike the original runtime's
// references, does not get reclaimed just because nothing still calls
// Send.
func (in *Instance[D]) Close() {
	done := make(chan struct{}, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		if !inst.closed {
			inst.closed = true
			for _, n := range allActive(inst.root) {
				n.stopEffects()
			}
			if inst.registry != nil {
				inst.registry.Unregister(inst.id)
			}
			close(inst.closeCh)
		}
		done <- struct{}{}
	}
	<-done
}
