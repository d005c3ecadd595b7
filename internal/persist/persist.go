// Package persist implements statepath.Persister against JSON/YAML files
// and Postgres, adapted from the teacher's internal/production persisters.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"gopkg.in/yaml.v3"

	"github.com/latticeform/statepath"
)

// JSONPersister is a file-based persister, one file per instance, named
// by instance id.
type JSONPersister struct {
	dir  string
	last map[string][]byte // last-written bytes, for the merge-patch diff in Save
}

func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir, last: make(map[string][]byte)}, nil
}

func (p *JSONPersister) Save(instanceID string, snapshot statepath.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", instanceID, err)
	}

	// A JSON merge patch against the previous save is computed here, but
	// it is neither written nor logged: this package has no logger, and
	// the patch is discarded.
	if prev, ok := p.last[instanceID]; ok {
		if patch, err := jsonpatch.CreateMergePatch(prev, data); err == nil && string(patch) != "{}" {
			_ = patch
		}
	}
	p.last[instanceID] = data

	fn := filepath.Join(p.dir, instanceID+".json")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", fn, err)
	}
	return nil
}

func (p *JSONPersister) Load(instanceID string) (statepath.Snapshot, error) {
	fn := filepath.Join(p.dir, instanceID+".json")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return statepath.Snapshot{}, fmt.Errorf("persist: instance %q: %w", instanceID, os.ErrNotExist)
		}
		return statepath.Snapshot{}, fmt.Errorf("persist: read %s: %w", fn, err)
	}
	var snap statepath.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return statepath.Snapshot{}, fmt.Errorf("persist: unmarshal %s: %w", fn, err)
	}
	return snap, nil
}

// YAMLPersister is the YAML-serialized counterpart to JSONPersister.
type YAMLPersister struct {
	dir string
}

func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(instanceID string, snapshot statepath.Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", instanceID, err)
	}
	fn := filepath.Join(p.dir, instanceID+".yaml")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", fn, err)
	}
	return nil
}

func (p *YAMLPersister) Load(instanceID string) (statepath.Snapshot, error) {
	fn := filepath.Join(p.dir, instanceID+".yaml")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return statepath.Snapshot{}, fmt.Errorf("persist: instance %q: %w", instanceID, os.ErrNotExist)
		}
		return statepath.Snapshot{}, fmt.Errorf("persist: read %s: %w", fn, err)
	}
	var snap statepath.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return statepath.Snapshot{}, fmt.Errorf("persist: unmarshal %s: %w", fn, err)
	}
	return snap, nil
}
