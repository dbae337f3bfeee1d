package ism8

import (
	"bytes"
	"testing"
)

// receiveFrame builds an inbound frame carrying the given entries
func receiveFrame(entries ...Entry) []byte {
	var start DatapointID
	if len(entries) > 0 {
		start = entries[0].ID
	}
	body := []byte{0xF0, 0x06, byte(start >> 8), byte(start), byte(len(entries) >> 8), byte(len(entries))}
	for _, e := range entries {
		body = append(body, byte(e.ID>>8), byte(e.ID), e.Command, byte(len(e.Raw)))
		body = append(body, e.Raw...)
	}

	total := HeaderLength + len(body)
	frame := append([]byte{}, FrameMarker[:]...)
	frame = append(frame, byte(total>>8), byte(total))
	frame = append(frame, ConnectionHeader[:]...)
	return append(frame, body...)
}

func TestReassemblerTwoMessagesOneChunk(t *testing.T) {
	a := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})
	b := receiveFrame(Entry{ID: 4, Raw: []byte{0x0C, 0x01}})

	var r Reassembler
	msgs := r.Feed(append(append([]byte{}, a...), b...))
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !bytes.Equal(msgs[0].Raw, a) || !bytes.Equal(msgs[1].Raw, b) {
		t.Fatalf("messages out of order or altered")
	}
	if !bytes.Equal(msgs[1].Payload, b[HeaderLength:]) {
		t.Fatalf("payload = %x, want %x", msgs[1].Payload, b[HeaderLength:])
	}
	if r.Pending() != 0 {
		t.Fatalf("expected no pending bytes, got %d", r.Pending())
	}
}

func TestReassemblerShortTailRetained(t *testing.T) {
	frame := receiveFrame(Entry{ID: 9, Raw: []byte{0x01}})

	var r Reassembler
	if msgs := r.Feed(frame[:5]); len(msgs) != 0 {
		t.Fatalf("expected no message from 5 bytes, got %d", len(msgs))
	}
	if r.Pending() != 5 {
		t.Fatalf("expected 5 retained bytes, got %d", r.Pending())
	}

	msgs := r.Feed(frame[5:])
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after completing the frame, got %d", len(msgs))
	}
	if !bytes.Equal(msgs[0].Raw, frame) {
		t.Fatalf("reassembled frame = %x, want %x", msgs[0].Raw, frame)
	}
}

func TestReassemblerOverlongLengthDiscards(t *testing.T) {
	frame := receiveFrame(Entry{ID: 9, Raw: []byte{0x01}})
	broken := append([]byte{}, frame...)
	broken[4], broken[5] = 0x01, 0x00 // claims 256 bytes

	var discarded []*FrameError
	r := Reassembler{OnDiscard: func(err *FrameError) { discarded = append(discarded, err) }}

	if msgs := r.Feed(broken); len(msgs) != 0 {
		t.Fatalf("expected zero messages, got %d", len(msgs))
	}
	if r.Pending() != 0 {
		t.Fatalf("broken frame must not be retained, %d bytes pending", r.Pending())
	}
	if len(discarded) != 1 || discarded[0].Reason != FrameReasonTruncated {
		t.Fatalf("expected one truncated discard, got %+v", discarded)
	}

	msgs := r.Feed(frame)
	if len(msgs) != 1 {
		t.Fatalf("fresh buffer should yield 1 message, got %d", len(msgs))
	}
}

func TestReassemblerGarbagePrefix(t *testing.T) {
	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x00}})
	data := append([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x06, 0x20}, frame...)

	var r Reassembler
	msgs := r.Feed(data)
	if len(msgs) != 1 || !bytes.Equal(msgs[0].Raw, frame) {
		t.Fatalf("expected the frame after the garbage, got %d messages", len(msgs))
	}
}

func TestReassemblerNoMarkerDiscardsAll(t *testing.T) {
	var r Reassembler
	if msgs := r.Feed([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
	if r.Pending() != 0 {
		t.Fatalf("expected nothing retained, got %d", r.Pending())
	}
}

func TestReassemblerZeroLengthDoesNotLoop(t *testing.T) {
	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x00}})
	frame[4], frame[5] = 0x00, 0x00

	var discarded []*FrameError
	r := Reassembler{OnDiscard: func(err *FrameError) { discarded = append(discarded, err) }}
	if msgs := r.Feed(frame); len(msgs) != 0 {
		t.Fatalf("expected zero messages, got %d", len(msgs))
	}
	if len(discarded) != 1 || discarded[0].Reason != FrameReasonShortLength {
		t.Fatalf("expected one short-length discard, got %+v", discarded)
	}
}

func TestReassemblerReset(t *testing.T) {
	var r Reassembler
	r.Feed(FrameMarker[:])
	if r.Pending() != 4 {
		t.Fatalf("expected 4 retained bytes, got %d", r.Pending())
	}
	r.Reset()
	if r.Pending() != 0 {
		t.Fatalf("expected empty buffer after Reset, got %d", r.Pending())
	}
}
