package ism8

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestServerServesOneModule(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(WithLogger(logger))
	srv := NewServer("127.0.0.1:0", engine, WithServerLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Listen(ctx); err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	req := make([]byte, 12)
	if _, err := io.ReadFull(conn, req); err != nil {
		t.Fatalf("read request: %v", err)
	}
	if !bytes.Equal(req, BuildReadAllFrame()) {
		t.Fatalf("expected read-all request, got %s", FormatHex(req))
	}

	frame := receiveFrame(Entry{ID: 8, Raw: []byte{0x0C, 0x01}})
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	ack := make([]byte, 17)
	if _, err := io.ReadFull(conn, ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if !bytes.Equal(ack, BuildAckFrame(frame)) {
		t.Fatalf("unexpected ack %s", FormatHex(ack))
	}
	waitFor(t, func() bool {
		v, ok := engine.Read(8)
		return ok && v.Equal(FloatValue(20.5))
	})

	// a second module is refused while the first is attached
	other, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer other.Close()
	other.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := other.Read(make([]byte, 1)); err == nil {
		t.Fatalf("second connection should be closed by the server")
	}

	conn.Close()
	waitFor(t, func() bool { return !engine.IsConnected() })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}

func TestNextAcceptDelay(t *testing.T) {
	d := nextAcceptDelay(0)
	if d != minAcceptDelay {
		t.Fatalf("first delay = %v, want %v", d, minAcceptDelay)
	}
	for i := 0; i < 20; i++ {
		next := nextAcceptDelay(d)
		if next < d || next > maxAcceptDelay {
			t.Fatalf("delay after %v = %v", d, next)
		}
		d = next
	}
	if d != maxAcceptDelay {
		t.Fatalf("delay should settle at %v, got %v", maxAcceptDelay, d)
	}
}
