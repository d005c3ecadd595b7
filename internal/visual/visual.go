// Package visual implements statepath.Visualizer, rendering a
// Snapshot's active-path set as Graphviz DOT or plain JSON. Adapted from
// the teacher's DefaultVisualizer: since a Snapshot carries only the
// currently active paths (not the full design tree with its
// transitions), the DOT graph here highlights active-state nesting
// rather than drawing transition edges — the design itself, not a
// snapshot of it, is the only place transitions are known.
package visual

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/latticeform/statepath"
)

type DOTVisualizer struct{}

func (DOTVisualizer) Export(snapshot statepath.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n  rankdir=LR;\n  node [shape=box, style=rounded];\n", snapshot.InstanceID)

	seen := make(map[string]bool)
	for _, path := range snapshot.Active {
		segments := strings.Split(strings.TrimPrefix(path, snapshot.InstanceID+"."), ".")
		var prefix string
		for i, seg := range segments {
			id := strings.Join(segments[:i+1], ".")
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&buf, "  %q [label=%q style=\"rounded,filled\" fillcolor=lightgreen];\n", id, seg)
			}
			if prefix != "" {
				edgeID := prefix + "->" + id
				if !seen[edgeID] {
					seen[edgeID] = true
					fmt.Fprintf(&buf, "  %q -> %q;\n", prefix, id)
				}
			}
			prefix = id
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

type JSONVisualizer struct{}

func (JSONVisualizer) Export(snapshot statepath.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snapshot, "", "  ")
}
