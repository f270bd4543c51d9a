package data

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/simkernel/internal/world"
)

// SpawnEntry places Count objects of one kind, Spacing apart, starting at
// Position. Parent names an object spawned earlier; empty means the root.
type SpawnEntry struct {
	Kind      string     `yaml:"kind"`
	Name      string     `yaml:"name"`
	Parent    string     `yaml:"parent"`
	Count     int        `yaml:"count"`
	Position  [2]float64 `yaml:"position"`
	Spacing   [2]float64 `yaml:"spacing"`
	Velocity  [2]float64 `yaml:"velocity"`
	Mass      *float64   `yaml:"mass"`        // nil keeps the archetype mass
	Collide   *bool      `yaml:"can_collide"` // nil keeps the archetype flag
	Unmovable bool       `yaml:"unmovable"`
	Layer     int        `yaml:"layer"`
	History   int        `yaml:"history_max"`

	kind world.Kind
}

type scenarioFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// Scenario is the initial population of a kernel.
type Scenario struct {
	Spawns []SpawnEntry
}

// Count returns the total number of objects the scenario creates.
func (s *Scenario) Count() int {
	n := 0
	for _, e := range s.Spawns {
		n += e.Count
	}
	return n
}

// LoadScenario loads a spawn list from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(raw)
}

func parseScenario(raw []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	var errs error
	for i := range f.Spawns {
		e := &f.Spawns[i]
		k, err := world.ParseKind(e.Kind)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("spawn %d: %w", i, err))
			continue
		}
		e.kind = k
		if e.Count == 0 {
			e.Count = 1
		}
		if e.Count < 0 {
			errs = multierr.Append(errs, fmt.Errorf("spawn %d: negative count %d", i, e.Count))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return &Scenario{Spawns: f.Spawns}, nil
}

// Apply spawns the scenario into k in file order and returns how many
// objects were created.
func (s *Scenario) Apply(k *world.Kernel) (int, error) {
	n := 0
	for i, e := range s.Spawns {
		var parent *world.Object
		if e.Parent != "" {
			p, ok := k.Lookup(e.Parent)
			if !ok {
				return n, fmt.Errorf("spawn %d: unknown parent %q", i, e.Parent)
			}
			parent = p
		}
		for j := 0; j < e.Count; j++ {
			if _, err := k.Spawn(e.kind, parent, e.options(j)...); err != nil {
				return n, fmt.Errorf("spawn %d #%d: %w", i, j, err)
			}
			n++
		}
	}
	return n, nil
}

func (e *SpawnEntry) options(j int) []world.Option {
	x := e.Position[0] + float64(j)*e.Spacing[0]
	y := e.Position[1] + float64(j)*e.Spacing[1]
	opts := []world.Option{
		world.WithPosition(x, y),
		world.WithVelocity(e.Velocity[0], e.Velocity[1]),
	}
	if name := e.nameFor(j); name != "" {
		opts = append(opts, world.WithName(name))
	}
	if e.Layer != 0 {
		opts = append(opts, world.WithLayer(e.Layer))
	}
	if e.History > 0 {
		opts = append(opts, world.WithHistory(e.History))
	}
	if e.Mass != nil {
		opts = append(opts, world.WithMass(*e.Mass))
	}
	if e.Collide != nil || e.Unmovable {
		collide := true
		if e.Collide != nil {
			collide = *e.Collide
		}
		opts = append(opts, world.WithCollision(collide, e.Unmovable))
	}
	return opts
}

// nameFor suffixes the index when one entry spawns several named objects.
func (e *SpawnEntry) nameFor(j int) string {
	if e.Name == "" || e.Count == 1 {
		return e.Name
	}
	return fmt.Sprintf("%s-%d", e.Name, j)
}
