package system

import (
	"encoding/binary"

	"go.uber.org/zap"

	gonet "github.com/l1jgo/simkernel/internal/net"
	"github.com/l1jgo/simkernel/internal/net/packet"
	"github.com/l1jgo/simkernel/internal/world"
)

// SessionSource hands newly connected observers to the stream.
type SessionSource interface {
	NewSessions() <-chan *gonet.Session
}

// StreamRenderer pushes an S_FRAME of every rooted spatial object to each
// connected observer every Every ticks. Observers may narrow the frame to
// one layer with C_LAYER.
type StreamRenderer struct {
	src      SessionSource
	every    uint64
	log      *zap.Logger
	sessions []*gonet.Session
}

func NewStreamRenderer(src SessionSource, every uint64, log *zap.Logger) *StreamRenderer {
	if every == 0 {
		every = 1
	}
	return &StreamRenderer{src: src, every: every, log: log}
}

// Observers returns the number of live observer sessions.
func (r *StreamRenderer) Observers() int { return len(r.sessions) }

func (r *StreamRenderer) Render(k *world.Kernel) {
	r.accept(k)
	r.drainInput()
	r.prune()
	if len(r.sessions) == 0 || k.Tick()%r.every != 0 {
		return
	}

	frames := make(map[int32][]byte, 1)
	for _, s := range r.sessions {
		f, ok := frames[s.Layer]
		if !ok {
			f = encodeFrame(k, s.Layer)
			frames[s.Layer] = f
		}
		s.Send(f)
		s.FlushOutput()
	}
}

// Close disconnects every observer.
func (r *StreamRenderer) Close() {
	for _, s := range r.sessions {
		s.Close()
	}
	r.sessions = nil
}

func (r *StreamRenderer) accept(k *world.Kernel) {
	for {
		select {
		case s := <-r.src.NewSessions():
			s.Send(encodeHello(k))
			s.FlushOutput()
			r.sessions = append(r.sessions, s)
		default:
			return
		}
	}
}

func (r *StreamRenderer) drainInput() {
	for _, s := range r.sessions {
		for n := len(s.InQueue); n > 0; n-- {
			data := <-s.InQueue
			pr := packet.NewReader(data)
			switch pr.Opcode() {
			case packet.C_LAYER:
				s.Layer = pr.ReadD()
			case packet.C_QUIT:
				s.Close()
			default:
				r.log.Debug("未知觀察者封包", zap.Uint64("session", s.ID), zap.Uint8("op", pr.Opcode()))
			}
		}
	}
}

func (r *StreamRenderer) prune() {
	live := r.sessions[:0]
	for _, s := range r.sessions {
		if !s.IsClosed() {
			live = append(live, s)
		}
	}
	clear(r.sessions[len(live):])
	r.sessions = live
}

func encodeHello(k *world.Kernel) []byte {
	minX, minY, maxX, maxY := k.Grid().Bounds()
	w := packet.NewWriterWithOpcode(packet.S_HELLO)
	w.WriteD(packet.Version)
	w.WriteD(int32(k.TickRate().Milliseconds()))
	w.WriteD(int32(minX))
	w.WriteD(int32(minY))
	w.WriteD(int32(maxX))
	w.WriteD(int32(maxY))
	return w.Bytes()
}

const frameRowSize = 8 + 1 + 4 + 4*8

func encodeFrame(k *world.Kernel, layer int32) []byte {
	flat := k.Root().Flatten(false)
	w := packet.NewWriterWithOpcode(packet.S_FRAME)
	w.Grow(12 + len(flat)*frameRowSize)
	w.WriteQ(k.Tick())
	countAt := w.Len()
	w.WriteD(0)

	var n int32
	for _, o := range flat {
		if o.Kin == nil || (layer != 0 && int32(o.Layer()) != layer) {
			continue
		}
		var vel world.Vec2
		if o.Phys != nil {
			vel = o.Phys.Current.Velocity
		}
		pos := o.Position()
		w.WriteQ(uint64(o.ID()))
		w.WriteC(byte(o.Kind()))
		w.WriteD(int32(o.Layer()))
		w.WriteF(pos.X)
		w.WriteF(pos.Y)
		w.WriteF(vel.X)
		w.WriteF(vel.Y)
		n++
	}
	b := w.Bytes()
	binary.LittleEndian.PutUint32(b[countAt:], uint32(n))
	return b
}

// MultiRenderer renders to each renderer in order.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(k *world.Kernel) {
	for _, r := range m {
		r.Render(k)
	}
}
