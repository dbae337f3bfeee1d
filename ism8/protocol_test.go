package ism8

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildAckFrame(t *testing.T) {
	frame := receiveFrame(Entry{ID: 0x0123, Raw: []byte{0x01}})
	ack := BuildAckFrame(frame)

	want := []byte{
		0x06, 0x20, 0xF0, 0x80, 0x00, 0x11,
		0x04, 0x00, 0x00, 0x00,
		0xF0, 0x86,
		0x01, 0x23,
		0x00, 0x00, 0x00,
	}
	if !bytes.Equal(ack, want) {
		t.Fatalf("ack = %s, want %s", FormatHex(ack), FormatHex(want))
	}
}

func TestBuildReadAllFrame(t *testing.T) {
	want := []byte{0x06, 0x20, 0xF0, 0x80, 0x00, 0x16, 0x04, 0x00, 0x00, 0x00, 0xF0, 0xD0}
	if got := BuildReadAllFrame(); !bytes.Equal(got, want) {
		t.Fatalf("read-all = %s, want %s", FormatHex(got), FormatHex(want))
	}
}

func TestBuildTransmitFrame(t *testing.T) {
	frame := BuildTransmitFrame(56, []byte{0x0C, 0x01})
	want := []byte{
		0x06, 0x20, 0xF0, 0x80, 0x00, 0x16,
		0x04, 0x00, 0x00, 0x00,
		0xF0, 0xC1,
		0x00, 0x38,
		0x00, 0x01,
		0x00, 0x38, 0x00, 0x02, 0x0C, 0x01,
	}
	if !bytes.Equal(frame, want) {
		t.Fatalf("transmit = %s, want %s", FormatHex(frame), FormatHex(want))
	}

	hdr, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if int(hdr.Length) != len(frame) {
		t.Fatalf("length field %d != frame length %d", hdr.Length, len(frame))
	}
	if hdr.Service != ServiceTransmit {
		t.Fatalf("service = %s", hdr.Service)
	}
}

func TestParsePayload(t *testing.T) {
	frame := receiveFrame(
		Entry{ID: 1, Raw: []byte{0x01}},
		Entry{ID: 4, Command: 3, Raw: []byte{0x0C, 0x01}},
		Entry{ID: 195, Raw: []byte{0x00, 0x00, 0x01, 0x00}},
	)
	p, err := ParsePayload(frame[HeaderLength:])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Service != ServiceReceive || p.Count != 3 || len(p.Entries) != 3 {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Entries[1].ID != 4 || p.Entries[1].Command != 3 || !bytes.Equal(p.Entries[1].Raw, []byte{0x0C, 0x01}) {
		t.Fatalf("unexpected second entry %+v", p.Entries[1])
	}
	if p.Entries[2].ID != 195 || len(p.Entries[2].Raw) != 4 {
		t.Fatalf("unexpected third entry %+v", p.Entries[2])
	}
}

func TestParsePayloadTruncatedEntry(t *testing.T) {
	frame := receiveFrame(
		Entry{ID: 1, Raw: []byte{0x01}},
		Entry{ID: 4, Raw: []byte{0x0C, 0x01}},
	)
	body := frame[HeaderLength : len(frame)-1]

	p, err := ParsePayload(body)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
	if p == nil || len(p.Entries) != 1 || p.Entries[0].ID != 1 {
		t.Fatalf("entries before the truncation should be kept, got %+v", p)
	}
}

func TestFormatAndParseHex(t *testing.T) {
	data := []byte{0x06, 0x20, 0xF0, 0x80}
	if s := FormatHex(data); s != "06 20 f0 80" {
		t.Fatalf("FormatHex = %q", s)
	}
	for _, in := range []string{"06 20 f0 80", "0x0620F080", "06:20:f0:80", " 0620 f080 "} {
		got, err := ParseHex(in)
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", in, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("ParseHex(%q) = %x", in, got)
		}
	}
}

func TestParsePayloadOversizedCount(t *testing.T) {
	frame := receiveFrame(Entry{ID: 1, Raw: []byte{0x01}})
	body := append([]byte{}, frame[HeaderLength:]...)
	body[4], body[5] = 0xFF, 0xFF // claims 65535 entries

	p, err := ParsePayload(body)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
	if p == nil || len(p.Entries) != 1 {
		t.Fatalf("the entry present should be parsed, got %+v", p)
	}
	if max := (len(body) - 6) / 4; cap(p.Entries) > max {
		t.Fatalf("entries capacity %d exceeds what the body can hold (%d)", cap(p.Entries), max)
	}
}
