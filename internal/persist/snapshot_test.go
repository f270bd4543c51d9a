package persist

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/world"
)

func TestCaptureWalksRootedGraph(t *testing.T) {
	s := world.DefaultSettings()
	s.TickRate = time.Second
	k := world.NewKernel(s, zap.NewNop())
	if err := k.ConfigureGrid(-8, -8, 8, 8); err != nil {
		t.Fatal(err)
	}
	g, err := k.Spawn(world.KindGroup, nil, world.WithName("g"), world.WithLayer(2))
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Spawn(world.KindBody, g, world.WithPosition(1, 2), world.WithVelocity(0.5, 0), world.WithMass(3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Create(world.KindParticle, true); err != nil { // never attached
		t.Fatal(err)
	}
	k.Update()

	snap := Capture(k, "run-a")
	if snap.Tick != 1 || snap.Run != "run-a" {
		t.Fatalf("unexpected header %+v", snap)
	}
	if len(snap.Objects) != 2 {
		t.Fatalf("expected the two rooted objects, got %d", len(snap.Objects))
	}
	group, body := snap.Objects[0], snap.Objects[1]
	if group.Name != "g" || group.Layer != 2 || group.ParentID != uint64(k.Root().ID()) {
		t.Fatalf("unexpected group row %+v", group)
	}
	if body.EntityID != uint64(b.ID()) || body.ParentID != uint64(g.ID()) || body.Layer != 2 {
		t.Fatalf("unexpected body row %+v", body)
	}
	if body.X != 1.5 || body.VX != 0.5 || body.Mass != 3 {
		t.Fatalf("unexpected body state %+v", body)
	}

	rows := snap.copyRows(42)
	if len(rows) != 2 || len(rows[1]) != len(snapshotColumns) {
		t.Fatalf("copy rows must match the column list")
	}
	if rows[1][0] != int64(42) || rows[1][1] != int64(b.ID()) || rows[1][len(rows[1])-1] != int32(1) {
		t.Fatalf("unexpected copy row %v", rows[1])
	}
}
