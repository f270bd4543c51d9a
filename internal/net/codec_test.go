package net

import (
	"bytes"
	"testing"

	"github.com/l1jgo/simkernel/internal/net/packet"
)

func TestFrameCodec(t *testing.T) {
	var buf bytes.Buffer
	w := packet.NewWriterWithOpcode(packet.S_FRAME)
	w.WriteQ(42)
	w.WriteD(-3)
	w.WriteF(1.5)
	w.WriteS("ring-0")
	if err := WriteFrame(&buf, w.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(&buf, []byte{packet.C_QUIT}); err != nil {
		t.Fatal(err)
	}

	payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r := packet.NewReader(payload)
	if r.Opcode() != packet.S_FRAME || r.ReadQ() != 42 || r.ReadD() != -3 || r.ReadF() != 1.5 || r.ReadS() != "ring-0" {
		t.Fatalf("decoded fields do not match")
	}
	if r.Remaining() != 0 || r.ReadD() != 0 {
		t.Fatalf("reads past the end must return zero")
	}

	payload, err = ReadFrame(&buf)
	if err != nil || len(payload) != 1 || payload[0] != packet.C_QUIT {
		t.Fatalf("second frame: %v %v", payload, err)
	}
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatalf("expected EOF error on empty input")
	}
}

func TestFrameCodecRejectsBadLength(t *testing.T) {
	if err := WriteFrame(&bytes.Buffer{}, nil); err == nil {
		t.Fatalf("empty frames must be rejected")
	}
	bad := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0x7f})
	if _, err := ReadFrame(bad); err == nil {
		t.Fatalf("oversized length must be rejected")
	}
}
