package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/latticeform/statepath"
	"github.com/latticeform/statepath/internal/guardcel"
)

// designFile is the on-disk YAML shape for a statechart loaded by the
// CLI. It covers the structural part of a Design (states, nesting,
// transitions, optional CEL guards) but not arbitrary Go data-mutating
// actions, which have no text representation — a design authored this
// way is necessarily guard-and-navigation only. Designs built in Go code
// use statepath.Design[D] directly and are not limited this way; this
// format exists for the CLI's validate/visualize/run commands.
type designFile struct {
	ID      string        `yaml:"id"`
	Initial string        `yaml:"initial"`
	States  []stateFile   `yaml:"states"`
}

type stateFile struct {
	Name    string               `yaml:"name"`
	Initial string               `yaml:"initial,omitempty"`
	States  []stateFile          `yaml:"states,omitempty"`
	On      map[string]eventFile `yaml:"on,omitempty"`
}

type eventFile struct {
	Target string `yaml:"target"`
	Guard  string `yaml:"guard,omitempty"` // CEL expression over data/payload
}

func loadDesignFile(path string) (*designFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("statepathctl: read %s: %w", path, err)
	}
	var df designFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("statepathctl: parse %s: %w", path, err)
	}
	return &df, nil
}

// toDesign converts a designFile into a statepath.Design[map[string]any],
// compiling every "guard" expression through guardcel.
func (df *designFile) toDesign() (*statepath.Design[map[string]any], error) {
	evaluator, err := guardcel.NewEvaluator[map[string]any](func(d map[string]any) any { return d })
	if err != nil {
		return nil, err
	}

	return &statepath.Design[map[string]any]{
		ID:      df.ID,
		Data:    map[string]any{},
		Initial: df.Initial,
		States:  convertStates(df.States, evaluator),
		Library: &statepath.Library[map[string]any]{},
	}, nil
}

func convertStates(files []stateFile, ev *guardcel.Evaluator[map[string]any]) []*statepath.StateDesign[map[string]any] {
	out := make([]*statepath.StateDesign[map[string]any], 0, len(files))
	for _, f := range files {
		sd := &statepath.StateDesign[map[string]any]{
			Name:    f.Name,
			Initial: f.Initial,
			States:  convertStates(f.States, ev),
		}
		if len(f.On) > 0 {
			sd.On = make(map[string]any, len(f.On))
			for event, ef := range f.On {
				target := ef.Target
				item := statepath.HandlerItem[map[string]any]{
					To: []statepath.ToFn[map[string]any]{
						func(data map[string]any, payload, result any) string { return target },
					},
				}
				if ef.Guard != "" {
					item.If = []statepath.CondFn[map[string]any]{ev.Condition(ef.Guard)}
				}
				sd.On[event] = item
			}
		}
		out = append(out, sd)
	}
	return out
}
