package statepath

import (
	"sort"
	"strings"
)

// parseTargetPath strips a trailing ".previous" or ".restore" modifier
// from a transition target path, reporting which (if either) was present.
func parseTargetPath(raw string) (path string, isPrevious, isRestore bool) {
	switch {
	case strings.HasSuffix(raw, ".previous"):
		return strings.TrimSuffix(raw, ".previous"), true, false
	case strings.HasSuffix(raw, ".restore"):
		return strings.TrimSuffix(raw, ".restore"), false, true
	default:
		return raw, false, false
	}
}

func depth[D any](n *StateNode[D]) int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// findTransitionTargets returns every node whose Path matches suffixPath,
// ordered shallowest-first with DFS-declaration-order as the tiebreak
// among nodes of equal depth (spec §4.C). Callers take the last element
// as the deepest match.
func findTransitionTargets[D any](root *StateNode[D], suffixPath string) []*StateNode[D] {
	var matches []*StateNode[D]
	var walk func(n *StateNode[D])
	walk = func(n *StateNode[D]) {
		if suffixMatches(n.Path, suffixPath) {
			matches = append(matches, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	sort.SliceStable(matches, func(i, j int) bool {
		return depth(matches[i]) < depth(matches[j])
	})
	return matches
}

// resolveTarget resolves a raw (possibly modifier-suffixed) transition
// target path to the deepest matching node, reporting the previous/
// restore flags. Returns a *TransitionError if nothing matches.
func resolveTarget[D any](root *StateNode[D], raw string) (*StateNode[D], bool, bool, error) {
	path, isPrevious, isRestore := parseTargetPath(raw)
	targets := findTransitionTargets(root, path)
	if len(targets) == 0 {
		return nil, false, false, &TransitionError{Target: raw}
	}
	return targets[len(targets)-1], isPrevious, isRestore, nil
}

// pathDown splits target's path into the segment names below root,
// e.g. for root "#i.root" and target "#i.root.a.b" returns ["a","b"];
// returns nil when target is root itself.
func pathDown[D any](root, target *StateNode[D]) []string {
	if target == root {
		return nil
	}
	rest := strings.TrimPrefix(target.Path, root.Path+".")
	if rest == target.Path {
		return nil
	}
	return strings.Split(rest, ".")
}

// allActive returns the depth-first list of nodes with Active == true,
// the canonical form of Instance.Active (spec invariant 3).
func allActive[D any](root *StateNode[D]) []*StateNode[D] {
	var out []*StateNode[D]
	var walk func(n *StateNode[D])
	walk = func(n *StateNode[D]) {
		if n.Active {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}
