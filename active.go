package statepath

// historyMode carries how deep a pending re-entry should consult recorded
// history: none (always use Initial), previous (consult History once, at
// the node pathDown runs out on, then fall back to Initial below that),
// or restore (consult History at every level below, recursively).
type historyMode int

const (
	histNone historyMode = iota
	histPrevious
	histRestore
)

// activate marks n and its necessary descendants active, per spec §4.C.
// down is the remaining explicit path segments to follow (possibly nil);
// mode governs how branch nodes choose a child once down is exhausted.
func activate[D any](n *StateNode[D], down []string, mode historyMode) {
	n.Active = true

	switch n.Type {
	case Leaf:
		return

	case Parallel:
		for _, c := range n.Children {
			if len(down) > 0 && c.Name == down[0] {
				activate(c, down[1:], mode)
				continue
			}
			childMode := histNone
			if mode == histRestore {
				childMode = histRestore
			}
			activate(c, nil, childMode)
		}

	case Branch:
		var chosen string
		switch {
		case len(down) > 0:
			chosen = down[0]
		case mode == histPrevious || mode == histRestore:
			if n.History != "" {
				chosen = n.History
			} else {
				chosen = n.Initial
			}
		default:
			chosen = n.Initial
		}
		n.History = chosen

		child := n.child(chosen)
		if child == nil {
			// Defensive: a validated design should never reach this, since
			// Initial/child names are checked at construction and explicit
			// path segments are checked by the caller before calling
			// activate. Treat as a no-op rather than panic mid-transition.
			return
		}

		var childDown []string
		if len(down) > 0 {
			childDown = down[1:]
		}
		childMode := histNone
		switch {
		case mode == histRestore:
			childMode = histRestore
		case len(down) > 0:
			// Still walking an explicit path toward the eventual target;
			// carry the mode forward so it applies once we arrive.
			childMode = mode
		}
		activate(child, childDown, childMode)
	}
}

// deactivate clears Active on n and every descendant. For every branch
// node with a currently-active child, it first records that child's name
// into History so a later "previous"/"restore" re-entry sees it.
func deactivate[D any](n *StateNode[D]) {
	if n.Type == Branch {
		for _, c := range n.Children {
			if c.Active {
				n.History = c.Name
				break
			}
		}
	}
	for _, c := range n.Children {
		deactivate(c)
	}
	n.Active = false
}

// modeFor converts the previous/restore booleans parsed from a transition
// target into a historyMode.
func modeFor(isPrevious, isRestore bool) historyMode {
	switch {
	case isRestore:
		return histRestore
	case isPrevious:
		return histPrevious
	default:
		return histNone
	}
}
