package statepath

// IsIn reports whether every one of paths names a currently active node,
// per the same suffix-matching rules as a transition target (spec §4.G:
// "true iff every supplied path matches some active node"). With no
// arguments it is vacuously true.
func (in *Instance[D]) IsIn(paths ...string) bool {
	out := make(chan bool, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		active := allActive(inst.root)
		for _, p := range paths {
			matched := false
			for _, n := range active {
				if suffixMatches(n.Path, p) {
					matched = true
					break
				}
			}
			if !matched {
				out <- false
				return
			}
		}
		out <- true
	}
	return <-out
}

// IsInAny reports whether any of paths is currently active.
func (in *Instance[D]) IsInAny(paths ...string) bool {
	out := make(chan bool, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		active := allActive(inst.root)
		for _, p := range paths {
			for _, n := range active {
				if suffixMatches(n.Path, p) {
					out <- true
					return
				}
			}
		}
		out <- false
	}
	return <-out
}

// GetConfig returns the Design this instance was built from (spec §4.G:
// "getConfig(): returns the original design"). The Design is never
// mutated after construction, so this is safe to read without a cmdCh
// round trip.
func (in *Instance[D]) GetConfig() *Design[D] {
	return in.design
}

// WhenIn folds paths into a single value: an entry is included when its
// key is "root" or matches a currently active path (suffix rule), its
// value is called if it is a zero-arg callable and used as-is otherwise,
// and reduce folds each included (key, value) pair into acc, seeded from
// initial (spec §4.G). With reduce nil, the default reducer appends each
// included value to a []any. Entries are visited in Go map iteration
// order, so the order of that []any (and of anything an order-sensitive
// reduce builds) is not defined.
func (in *Instance[D]) WhenIn(paths map[string]any, reduce func(acc any, key string, val any) any, initial any) any {
	out := make(chan any, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		active := allActive(inst.root)
		acc := initial
		for key, raw := range paths {
			included := key == "root"
			if !included {
				for _, n := range active {
					if suffixMatches(n.Path, key) {
						included = true
						break
					}
				}
			}
			if !included {
				continue
			}
			val := raw
			if fn, ok := raw.(func() any); ok {
				val = fn()
			}
			if reduce != nil {
				acc = reduce(acc, key, val)
			} else {
				list, _ := acc.([]any)
				acc = append(list, val)
			}
		}
		out <- acc
	}
	return <-out
}

// Can reports whether some active state's on[event] chain contains an
// item whose guards would pass against (data, payload, computedResult)
// (spec §4.G). Evaluation is pure: no draft is built, no do/send/to slot
// runs — only get pipelines (assumed pure, per spec §9) and guards, to
// derive the result a real dispatch would see.
func (in *Instance[D]) Can(event string, payload any) bool {
	out := make(chan bool, 1)
	in.cmdCh <- func(inst *Instance[D]) {
		for _, n := range allActive(inst.root) {
			chain, ok := n.On[event]
			if !ok || len(chain) == 0 {
				continue
			}
			if canChainPass(inst.data, payload, chain) {
				out <- true
				return
			}
		}
		out <- false
	}
	return <-out
}

// canChainPass runs a chain's get pipeline (threading result across items
// exactly as runChain does) and reports whether any item's guards pass,
// without running do/send/to for real.
func canChainPass[D any](data D, payload any, chain HandlerChain[D]) bool {
	var result any
	for _, item := range chain {
		for _, get := range item.Get {
			result = safeCallGet(get, data, payload, result)
		}
		if evalGuards(item, data, payload, result) {
			return true
		}
	}
	return false
}

// Clone produces an independent Instance starting from the same active
// configuration and data this instance currently holds, without
// replaying entry actions or starting new repeat/async effects for
// already-active states (spec §8's clone round-trip: the two instances'
// subsequent histories must not affect each other). The clone does get
// its own repeat/async effects started going forward, from the next
// transition that enters those states again.
func (in *Instance[D]) Clone(opts ...Option[D]) (*Instance[D], error) {
	snap := in.GetUpdate()

	// Build against the same id prefix as the original so snap.Active's
	// paths resolve directly against the new tree; the clone gets its own
	// identity via out.id below, used in log lines. Clone does not add the
	// clone to any Registry.
	root, err := buildTree[D](in.id, in.design)
	if err != nil {
		return nil, err
	}
	applyActivePaths(root, snap.Active)

	out := &Instance[D]{
		id:      in.id + "-clone",
		design:  in.design,
		root:    root,
		data:    snap.Data.(D),
		logger:  in.logger,
		cmdCh:   make(chan func(*Instance[D]), 1024),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(out)
	}
	go out.loop()
	return out, nil
}

// applyActivePaths marks every node named in paths (and, for branch
// nodes along the way, records History) active, without running any
// handler chain.
func applyActivePaths[D any](root *StateNode[D], paths []string) {
	byPath := make(map[string]*StateNode[D])
	var index func(n *StateNode[D])
	index = func(n *StateNode[D]) {
		byPath[n.Path] = n
		for _, c := range n.Children {
			index(c)
		}
	}
	index(root)

	for _, p := range paths {
		n, ok := byPath[p]
		if !ok {
			continue
		}
		for cur := n; cur != nil; cur = cur.Parent {
			cur.Active = true
			if cur.Parent != nil && cur.Parent.Type == Branch {
				cur.Parent.History = cur.Name
			}
		}
	}
}
