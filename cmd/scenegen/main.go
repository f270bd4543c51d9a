// scenegen writes scenario YAML files for simkernel.
//
// Usage:
//
//	go run ./cmd/scenegen <command> [flags]
//
// Commands: cloud, lattice, orbit, restore
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/simkernel/internal/config"
	"github.com/l1jgo/simkernel/internal/data"
	"github.com/l1jgo/simkernel/internal/persist"
	"github.com/l1jgo/simkernel/internal/world"
)

type scenarioYAML struct {
	Spawns []data.SpawnEntry `yaml:"spawns"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	out := fs.String("out", "data/yaml/scenario.yaml", "output YAML path")
	count := fs.Int("count", 64, "number of bodies")
	radius := fs.Float64("radius", 24, "cloud or ring radius")
	speed := fs.Float64("speed", 1, "initial speed")
	mass := fs.Float64("mass", 1, "body mass")
	seed := fs.Int64("seed", 1, "random seed")
	cfgPath := fs.String("config", "config/simkernel.toml", "config file (restore)")
	runName := fs.String("run", "", "run to restore")
	fs.Parse(os.Args[2:])

	var (
		spawns []data.SpawnEntry
		err    error
	)
	switch cmd {
	case "cloud":
		spawns = genCloud(*count, *radius, *speed, *mass, rand.New(rand.NewSource(*seed)))
	case "lattice":
		spawns = genLattice(*count, *mass)
	case "orbit":
		spawns = genOrbit(*count, *radius, *mass)
	case "restore":
		spawns, err = restore(*cfgPath, *runName)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
	if err := writeYAML(*out, scenarioYAML{Spawns: spawns}); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d entries -> %s\n", cmd, len(spawns), *out)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: scenegen <cloud|lattice|orbit|restore> [flags]")
}

func writeYAML(path string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func ptr[T any](v T) *T { return &v }

// genCloud scatters bodies uniformly in a disc with random headings.
func genCloud(n int, radius, speed, mass float64, rng *rand.Rand) []data.SpawnEntry {
	out := make([]data.SpawnEntry, 0, n)
	for i := 0; i < n; i++ {
		r := radius * math.Sqrt(rng.Float64())
		a := 2 * math.Pi * rng.Float64()
		h := 2 * math.Pi * rng.Float64()
		out = append(out, data.SpawnEntry{
			Kind:     "body",
			Count:    1,
			Position: [2]float64{r * math.Cos(a), r * math.Sin(a)},
			Velocity: [2]float64{speed * math.Cos(h), speed * math.Sin(h)},
			Mass:     ptr(mass),
		})
	}
	return out
}

// genLattice lays bodies out on a square lattice, one row per entry.
func genLattice(n int, mass float64) []data.SpawnEntry {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	var out []data.SpawnEntry
	for row := 0; n > 0; row++ {
		c := min(side, n)
		out = append(out, data.SpawnEntry{
			Kind:     "body",
			Count:    c,
			Position: [2]float64{-float64(side)/2 + 0.5, -float64(side)/2 + 0.5 + float64(row)*2},
			Spacing:  [2]float64{2, 0},
			Mass:     ptr(mass),
		})
		n -= c
	}
	return out
}

// genOrbit puts one heavy unmovable body at the origin and a ring of light
// bodies on tangential velocities around it.
func genOrbit(n int, radius, mass float64) []data.SpawnEntry {
	central := mass * float64(n) * 10
	out := []data.SpawnEntry{{
		Kind:      "body",
		Name:      "sun",
		Count:     1,
		Position:  [2]float64{0.5, 0.5},
		Mass:      ptr(central),
		Unmovable: true,
	}}
	v := math.Sqrt(central / radius)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, data.SpawnEntry{
			Kind:     "body",
			Count:    1,
			Position: [2]float64{radius * math.Cos(a), radius * math.Sin(a)},
			Velocity: [2]float64{-v * math.Sin(a), v * math.Cos(a)},
			Mass:     ptr(mass),
		})
	}
	return out
}

// restore turns the latest stored snapshot of a run back into a scenario.
func restore(cfgPath, run string) ([]data.SpawnEntry, error) {
	if run == "" {
		return nil, fmt.Errorf("-run is required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap, err := persist.NewSnapshotRepo(db).LoadLatest(ctx, run)
	if err != nil {
		return nil, err
	}
	return snapshotToSpawns(snap), nil
}

// snapshotToSpawns relies on the preorder of snapshot rows: every parent
// precedes its children.
func snapshotToSpawns(snap *persist.Snapshot) []data.SpawnEntry {
	names := make(map[uint64]string, len(snap.Objects))
	out := make([]data.SpawnEntry, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		name := o.Name
		if name == "" {
			name = fmt.Sprintf("e%d", o.EntityID)
		}
		names[o.EntityID] = name
		e := data.SpawnEntry{
			Kind:     world.Kind(o.Kind).String(),
			Name:     name,
			Parent:   names[o.ParentID],
			Count:    1,
			Position: [2]float64{o.X, o.Y},
			Velocity: [2]float64{o.VX, o.VY},
			Layer:    int(o.Layer),
		}
		if world.Kind(o.Kind).Has(world.CapPhysical) {
			e.Mass = ptr(o.Mass)
		}
		out = append(out, e)
	}
	return out
}
