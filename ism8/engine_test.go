package ism8

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// frameRecorder captures every write as a separate frame
type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *frameRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (r *frameRecorder) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *frameRecorder) {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e := NewEngine(opts...)
	rec := &frameRecorder{}
	if err := e.ConnectionMade(rec, "192.0.2.10:50000"); err != nil {
		t.Fatalf("connection made: %v", err)
	}
	return e, rec
}

func TestEngineAcksEachMessageInOrder(t *testing.T) {
	e, rec := newTestEngine(t)

	a := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})
	b := receiveFrame(Entry{ID: 8, Raw: []byte{0x0C, 0x01}})
	e.HandleData(append(append([]byte{}, a...), b...))

	frames := rec.Frames()
	if len(frames) != 2 {
		t.Fatalf("expected 2 acks, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], BuildAckFrame(a)) || !bytes.Equal(frames[1], BuildAckFrame(b)) {
		t.Fatalf("acks out of order: %s / %s", FormatHex(frames[0]), FormatHex(frames[1]))
	}
	if frames[0][13] != 0x01 || frames[1][13] != 0x08 {
		t.Fatalf("ack echo bytes not copied from the received frames")
	}

	if v, ok := e.Read(1); !ok || !v.Equal(BoolValue(true)) {
		t.Fatalf("datapoint 1 = %v, %v", v, ok)
	}
	if v, ok := e.Read(8); !ok || !v.Equal(FloatValue(20.5)) {
		t.Fatalf("datapoint 8 = %v, %v", v, ok)
	}

	snap := e.Metrics().Snapshot()
	if snap.FramesReceived != 2 || snap.AcksSent != 2 || snap.DatapointsDecoded != 2 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestEngineUnknownDatapointMidMessage(t *testing.T) {
	e, _ := newTestEngine(t)

	e.HandleData(receiveFrame(
		Entry{ID: 1, Raw: []byte{0x01}},
		Entry{ID: 999, Raw: []byte{0x12, 0x34}},
		Entry{ID: 3, Raw: []byte{0xFF}},
	))

	if v, ok := e.Read(999); !ok || !v.Equal(IntValue(0x1234)) {
		t.Fatalf("unknown datapoint should be stored as integer, got %v, %v", v, ok)
	}
	if v, ok := e.Read(3); !ok || !v.Equal(FloatValue(100)) {
		t.Fatalf("entry after the unknown one = %v, %v", v, ok)
	}
	if got := e.Metrics().UnknownDatapoints.Value(); got != 1 {
		t.Fatalf("unknown datapoints = %d, want 1", got)
	}
}

func TestEngineTruncatedEntryKeepsEarlierValues(t *testing.T) {
	e, rec := newTestEngine(t)

	frame := receiveFrame(
		Entry{ID: 1, Raw: []byte{0x01}},
		Entry{ID: 8, Raw: []byte{0x0C, 0x01}},
	)
	// shrink the frame so the second entry is cut short
	frame = frame[:len(frame)-1]
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(frame)))
	e.HandleData(frame)

	if len(rec.Frames()) != 1 {
		t.Fatalf("frame should still be acknowledged")
	}
	if _, ok := e.Read(1); !ok {
		t.Fatalf("first entry should be stored")
	}
	if _, ok := e.Read(8); ok {
		t.Fatalf("truncated entry must not be stored")
	}
}

func TestEngineSendValidation(t *testing.T) {
	tests := []struct {
		name  string
		id    DatapointID
		value Value
		err   error
	}{
		{"unknown datapoint", 999, IntValue(1), ErrUnknownDatapoint},
		{"read-only", 1, BoolValue(true), ErrNotWritable},
		{"type mismatch", 56, IntValue(50), ErrTypeMismatch},
		{"outside domain", 56, FloatValue(90), ErrOutOfRange},
		{"off step", 65, FloatValue(7), ErrOutOfRange},
		{"labels skip the domain", 58, LabelValue("Reduced"), nil},
		{"below type bounds", 199, FloatValue(-300), ErrOutOfRange},
		{"invalid label", 57, LabelValue("Turbo"), ErrInvalidEnumValue},
		{"date year", 154, DateValue(mustDate(t, "2100-01-01")), ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newTestEngine(t)
			err := e.Send(tt.id, tt.value)
			if tt.err == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected a ValidationError, got %T", err)
			}
			if n := len(rec.Frames()); n != 0 {
				t.Fatalf("nothing should be written, got %d frames", n)
			}
		})
	}
}

func TestEngineSendInsideDomain(t *testing.T) {
	e, rec := newTestEngine(t)

	if err := e.Send(56, FloatValue(51.8)); err != nil {
		t.Fatalf("send: %v", err)
	}
	frames := rec.Frames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	frame := frames[0]
	if got := int(binary.BigEndian.Uint16(frame[4:6])); got != len(frame) {
		t.Fatalf("length field %d != frame length %d", got, len(frame))
	}
	if binary.BigEndian.Uint16(frame[10:12]) != uint16(ServiceTransmit) {
		t.Fatalf("not a transmit frame: %s", FormatHex(frame))
	}

	// the store only reflects values reported by the module
	if _, ok := e.Read(56); ok {
		t.Fatalf("send must not update the store")
	}
}

func TestEngineSendAcceptedValues(t *testing.T) {
	tests := []struct {
		id    DatapointID
		value Value
		raw   []byte
	}{
		{59, BoolValue(true), []byte{0x01}},
		{65, FloatValue(-35), []byte{0x89, 0x2A}},
		{57, LabelValue(" standby "), []byte{0x02}},
		{58, LabelValue("reduced"), []byte{0x03}},
		{198, FloatValue(100), []byte{0xFF}},
	}
	for _, tt := range tests {
		e, rec := newTestEngine(t)
		if err := e.Send(tt.id, tt.value); err != nil {
			t.Fatalf("send %d %v: %v", tt.id, tt.value, err)
		}
		frame := rec.Frames()[0]
		if raw := frame[20:]; !bytes.Equal(raw, tt.raw) {
			t.Fatalf("datapoint %d raw = %x, want %x", tt.id, raw, tt.raw)
		}
	}
}

func TestEngineNotConnected(t *testing.T) {
	e := NewEngine(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if err := e.Send(56, FloatValue(50)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := e.RequestAll(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if got := e.Metrics().WritesRejected.Value(); got != 0 {
		t.Fatalf("a valid send without connection must not count as rejected, got %d", got)
	}

	// validation errors are reported before the missing connection
	if err := e.Send(1, BoolValue(true)); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
	if err := e.Send(999, IntValue(1)); !errors.Is(err, ErrUnknownDatapoint) {
		t.Fatalf("expected ErrUnknownDatapoint, got %v", err)
	}
	if err := e.SendText(56, "warm"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if got := e.Metrics().WritesSent.Value(); got != 0 {
		t.Fatalf("writes sent = %d, want 0", got)
	}
	if _, ok := e.Read(1); ok {
		t.Fatalf("a rejected send must not touch the store")
	}
}

func TestEngineConnectionLost(t *testing.T) {
	e, _ := newTestEngine(t)

	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})
	e.HandleData(frame[:6])
	e.ConnectionLost(io.EOF)

	if e.State() != StateDisconnected {
		t.Fatalf("state = %s, want disconnected", e.State())
	}
	if err := e.Send(59, BoolValue(true)); !IsNotConnected(err) {
		t.Fatalf("expected not connected, got %v", err)
	}
	// a second notification is harmless
	e.ConnectionLost(nil)

	rec := &frameRecorder{}
	if err := e.ConnectionMade(rec, "192.0.2.10:50001"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	e.HandleData(frame)
	if n := len(rec.Frames()); n != 1 {
		t.Fatalf("expected 1 ack after reconnect, got %d", n)
	}
	if got := e.Metrics().Disconnects.Value(); got != 1 {
		t.Fatalf("disconnects = %d, want 1", got)
	}
}

func TestEngineAlreadyConnected(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.ConnectionMade(&frameRecorder{}, "192.0.2.11:50000"); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestEngineRequestAll(t *testing.T) {
	e, rec := newTestEngine(t)
	if err := e.RequestAll(); err != nil {
		t.Fatalf("request all: %v", err)
	}
	frames := rec.Frames()
	if len(frames) != 1 || !bytes.Equal(frames[0], BuildReadAllFrame()) {
		t.Fatalf("unexpected frames %v", frames)
	}
}

func TestEngineUpdateHandler(t *testing.T) {
	var got []StoredValue
	e, _ := newTestEngine(t, WithUpdateHandler(func(dp Datapoint, sv StoredValue) {
		if dp.ID != sv.ID {
			t.Errorf("datapoint %d delivered with value for %d", dp.ID, sv.ID)
		}
		got = append(got, sv)
	}))

	e.HandleData(receiveFrame(
		Entry{ID: 2, Raw: []byte{0x01}},
		Entry{ID: 57, Raw: []byte{0x03}},
	))
	if len(got) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(got))
	}
	if !got[0].Value.Equal(LabelValue("Heat")) || !got[1].Value.Equal(LabelValue("Economy")) {
		t.Fatalf("unexpected updates %+v", got)
	}
}

func TestEngineSendText(t *testing.T) {
	e, rec := newTestEngine(t)
	if err := e.SendText(154, "2024-03-01"); err != nil {
		t.Fatalf("send date: %v", err)
	}
	if err := e.SendText(156, "06:30"); err != nil {
		t.Fatalf("send time: %v", err)
	}
	if err := e.SendText(56, "warm"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if n := len(rec.Frames()); n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestEnginePendingBytes(t *testing.T) {
	e, _ := newTestEngine(t)
	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})

	e.HandleData(frame[:8])
	if n := e.PendingBytes(); n != 8 {
		t.Fatalf("pending = %d, want 8", n)
	}
	e.HandleData(frame[8:])
	if n := e.PendingBytes(); n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}
}

func TestEngineUpdateHandlerCanCallEngine(t *testing.T) {
	var e *Engine
	var pending []int
	e, _ = newTestEngine(t, WithUpdateHandler(func(dp Datapoint, sv StoredValue) {
		pending = append(pending, e.PendingBytes())
		if _, ok := e.Read(sv.ID); !ok {
			t.Errorf("datapoint %d not readable from its handler", sv.ID)
		}
	}))

	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.HandleData(append(append([]byte{}, frame...), frame[:5]...))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("HandleData did not return; handler blocked on the engine")
	}
	if len(pending) != 1 || pending[0] != 5 {
		t.Fatalf("pending seen by handler = %v, want [5]", pending)
	}
}
