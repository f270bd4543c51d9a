package data

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/simkernel/internal/world"
)

type archetypeEntry struct {
	Kind       string  `yaml:"kind"`
	Mass       float64 `yaml:"mass"`
	CanCollide bool    `yaml:"can_collide"`
	Unmovable  bool    `yaml:"unmovable"`
	HistoryMax int     `yaml:"history_max"`
	Layer      int     `yaml:"layer"`
}

type archetypeFile struct {
	Archetypes []archetypeEntry `yaml:"archetypes"`
}

// ArchetypeTable holds constructor defaults indexed by kind.
type ArchetypeTable struct {
	byKind map[world.Kind]world.Archetype
}

// Get returns the defaults for a kind.
func (t *ArchetypeTable) Get(k world.Kind) (world.Archetype, bool) {
	a, ok := t.byKind[k]
	return a, ok
}

// Count returns the number of kinds with overrides.
func (t *ArchetypeTable) Count() int {
	return len(t.byKind)
}

// Apply installs every archetype into the pool.
func (t *ArchetypeTable) Apply(p *world.Pool) error {
	for k, a := range t.byKind {
		if err := p.SetArchetype(k, a); err != nil {
			return err
		}
	}
	return nil
}

// LoadArchetypes loads per-kind constructor defaults from a YAML file.
func LoadArchetypes(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	return parseArchetypes(raw)
}

func parseArchetypes(raw []byte) (*ArchetypeTable, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	t := &ArchetypeTable{byKind: make(map[world.Kind]world.Archetype, len(f.Archetypes))}
	var errs error
	for i, e := range f.Archetypes {
		k, err := world.ParseKind(e.Kind)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("archetype %d: %w", i, err))
			continue
		}
		if e.Mass < 0 {
			errs = multierr.Append(errs, fmt.Errorf("archetype %s: negative mass %v", e.Kind, e.Mass))
		}
		if e.HistoryMax < 0 {
			errs = multierr.Append(errs, fmt.Errorf("archetype %s: negative history_max %d", e.Kind, e.HistoryMax))
		}
		t.byKind[k] = world.Archetype{
			Mass:       e.Mass,
			CanCollide: e.CanCollide,
			Unmovable:  e.Unmovable,
			HistoryMax: e.HistoryMax,
			Layer:      e.Layer,
		}
	}
	if errs != nil {
		return nil, errs
	}
	return t, nil
}
