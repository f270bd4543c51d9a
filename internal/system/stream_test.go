package system

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	gonet "github.com/l1jgo/simkernel/internal/net"
	"github.com/l1jgo/simkernel/internal/net/packet"
	"github.com/l1jgo/simkernel/internal/world"
)

type chanSource chan *gonet.Session

func (c chanSource) NewSessions() <-chan *gonet.Session { return c }

func dialObserver(t *testing.T) (*gonet.Server, net.Conn) {
	t.Helper()
	srv, err := gonet.NewServer("127.0.0.1:0", 8, 8, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go srv.AcceptLoop()
	t.Cleanup(srv.Shutdown)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return srv, conn
}

// renderUntil renders until the renderer has n observers or the deadline passes.
func renderUntil(t *testing.T, r *StreamRenderer, k *world.Kernel, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Observers() != n && time.Now().Before(deadline) {
		r.Render(k)
		time.Sleep(time.Millisecond)
	}
	if r.Observers() != n {
		t.Fatalf("expected %d observers, got %d", n, r.Observers())
	}
}

func readPacket(t *testing.T, conn net.Conn, op byte) *packet.Reader {
	t.Helper()
	payload, err := gonet.ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	r := packet.NewReader(payload)
	if r.Opcode() != op {
		t.Fatalf("expected opcode %d, got %d", op, r.Opcode())
	}
	return r
}

func TestStreamSendsHelloAndFrames(t *testing.T) {
	k := newKernel(t)
	a := mustSpawn(t, k, world.KindBody, world.WithPosition(1.5, 2.5), world.WithVelocity(3, 0))
	mustSpawn(t, k, world.KindGroup)

	srv, conn := dialObserver(t)
	r := NewStreamRenderer(srv, 1, zap.NewNop())
	defer r.Close()
	renderUntil(t, r, k, 1)

	hello := readPacket(t, conn, packet.S_HELLO)
	if hello.ReadD() != packet.Version || hello.ReadD() != 1000 {
		t.Fatalf("unexpected hello header")
	}
	if minX, minY, maxX, maxY := hello.ReadD(), hello.ReadD(), hello.ReadD(), hello.ReadD(); minX != -16 || minY != -16 || maxX != 16 || maxY != 16 {
		t.Fatalf("unexpected bounds %d %d %d %d", minX, minY, maxX, maxY)
	}

	frame := readPacket(t, conn, packet.S_FRAME)
	frame.ReadQ() // tick
	if n := frame.ReadD(); n != 1 {
		t.Fatalf("groups carry no position; expected 1 row, got %d", n)
	}
	if id := frame.ReadQ(); id != uint64(a.ID()) {
		t.Fatalf("expected id %d, got %d", a.ID(), id)
	}
	if kind := frame.ReadC(); kind != byte(world.KindBody) {
		t.Fatalf("expected body kind, got %d", kind)
	}
	frame.ReadD() // layer
	if x, y, vx := frame.ReadF(), frame.ReadF(), frame.ReadF(); x != 1.5 || y != 2.5 || vx != 3 {
		t.Fatalf("unexpected row %v %v %v", x, y, vx)
	}
}

func TestStreamLayerFilterAndQuit(t *testing.T) {
	k := newKernel(t)
	mustSpawn(t, k, world.KindParticle, world.WithLayer(2))
	mustSpawn(t, k, world.KindParticle, world.WithLayer(3))

	srv, conn := dialObserver(t)
	r := NewStreamRenderer(srv, 1, zap.NewNop())
	defer r.Close()
	renderUntil(t, r, k, 1)
	readPacket(t, conn, packet.S_HELLO)
	readPacket(t, conn, packet.S_FRAME)

	w := packet.NewWriterWithOpcode(packet.C_LAYER)
	w.WriteD(3)
	if err := gonet.WriteFrame(conn, w.Bytes()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		r.Render(k)
		f := readPacket(t, conn, packet.S_FRAME)
		f.ReadQ()
		if f.ReadD() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("layer filter never applied")
		}
	}

	if err := gonet.WriteFrame(conn, []byte{packet.C_QUIT}); err != nil {
		t.Fatal(err)
	}
	renderUntil(t, r, k, 0)
}

func TestStreamWithoutObservers(t *testing.T) {
	k := newKernel(t)
	r := NewStreamRenderer(make(chanSource), 0, zap.NewNop())
	MultiRenderer{r, &LogRenderer{Log: zap.NewNop(), Every: 1}}.Render(k)
	if r.Observers() != 0 {
		t.Fatalf("no observers expected")
	}
}
