package net

import (
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func acceptOne(t *testing.T, srv *Server) *Session {
	t.Helper()
	select {
	case s := <-srv.NewSessions():
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("no session accepted")
		return nil
	}
}

func TestServerObserverLimit(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 4, 4, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	srv.SetLimit(1)
	go srv.AcceptLoop()
	t.Cleanup(srv.Shutdown)

	first, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	sess := acceptOne(t, srv)
	if srv.Active() != 1 {
		t.Fatalf("expected 1 active observer, got %d", srv.Active())
	}

	rejected, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer rejected.Close()
	rejected.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := rejected.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected the over-limit connection to be closed, got %v", err)
	}

	sess.Close()
	if srv.Active() != 0 {
		t.Fatalf("expected closing the session to free its slot, active %d", srv.Active())
	}

	again, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	acceptOne(t, srv).Close()
}
