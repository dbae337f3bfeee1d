package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/edgeo/drivers/ism8/ism8"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

const sampleFrame = "06 20 f0 80 00 15 04 00 00 00 f0 06 00 01 00 01 00 01 03 01 01"

func TestDecodeChunks(t *testing.T) {
	frame, err := ism8.ParseHex(sampleFrame)
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}

	// split the frame across two reads
	result, err := decodeChunks([][]byte{frame[:7], frame[7:]})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Datapoints) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(result.Datapoints))
	}
	dp := result.Datapoints[0]
	if dp.ID != 1 || dp.Device != "HG1" || dp.Value != true {
		t.Fatalf("unexpected datapoint %+v", dp)
	}
	if len(result.Acks) != 1 || !strings.HasPrefix(result.Acks[0], "06 20 f0 80 00 11") {
		t.Fatalf("unexpected acks %v", result.Acks)
	}
	if result.Pending != 0 {
		t.Fatalf("pending = %d, want 0", result.Pending)
	}
}

func TestDecodeChunksIncompleteTail(t *testing.T) {
	frame, _ := ism8.ParseHex(sampleFrame)
	result, err := decodeChunks([][]byte{frame, frame[:8]})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Datapoints) != 1 || result.Pending != 8 {
		t.Fatalf("datapoints = %d, pending = %d", len(result.Datapoints), result.Pending)
	}
}

func TestReadChunksFromFile(t *testing.T) {
	path := t.TempDir() + "/capture.txt"
	content := "# capture\n" + sampleFrame + "\n\n0620f080\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	chunks, err := readChunks([]string{"00 01"}, path)
	if err != nil {
		t.Fatalf("read chunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !bytes.Equal(chunks[2], []byte{0x06, 0x20, 0xF0, 0x80}) {
		t.Fatalf("last chunk = %x", chunks[2])
	}

	if _, err := readChunks([]string{"zz"}, ""); err == nil {
		t.Fatalf("expected an error for invalid hex")
	}
}

func TestEncodeWrite(t *testing.T) {
	engine := createEngine()

	record, err := encodeWrite(engine, 56, "52.5")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if record.Device != "DKW" || record.Allowed == "" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !strings.HasPrefix(record.Frame, "06 20 f0 80 00 16 04 00 00 00 f0 c1 00 38") {
		t.Fatalf("unexpected frame %s", record.Frame)
	}

	if _, err := encodeWrite(engine, 1, "true"); !errors.Is(err, ism8.ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
	if _, err := encodeWrite(engine, 56, "hot"); !errors.Is(err, ism8.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := encodeWrite(engine, 9999, "1"); !errors.Is(err, ism8.ErrUnknownDatapoint) {
		t.Fatalf("expected ErrUnknownDatapoint, got %v", err)
	}
}

func TestFormatterRecords(t *testing.T) {
	records := []datapointRecord{{ID: 1, Device: "HG1", Name: "Stoerung", Type: "DPT_Switch"}}
	headers := []string{"ID", "Device"}
	rows := [][]string{{"1", "HG1"}}

	tests := []struct {
		format string
		want   string
	}{
		{"table", "ID Device"},
		{"csv", "ID,Device\n1,HG1\n"},
		{"raw", "1\tHG1\n"},
		{"json", `"device": "HG1"`},
		{"yaml", "device: HG1"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewFormatter(tt.format)
			f.SetWriter(&buf)
			if err := f.PrintRecords(headers, rows, records); err != nil {
				t.Fatalf("print: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestDatapointRecord(t *testing.T) {
	catalog := ism8.DefaultCatalog()
	dp, _ := catalog.Lookup(57)
	r := newDatapointRecord(catalog, dp)
	if !r.Writable || r.Type != "DPT_HVACMode" || len(r.Labels) == 0 {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.DeviceName == r.Device {
		t.Fatalf("device name not resolved for %s", r.Device)
	}
}

// fakeMessage implements mqtt.Message
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestMQTTSetRoutesToEngine(t *testing.T) {
	engine := createEngine()
	capture := &frameCapture{}
	if err := engine.ConnectionMade(capture, "test"); err != nil {
		t.Fatalf("connection made: %v", err)
	}

	b := newMQTTBridge(mqttConfig{Prefix: "heating/"}, logger)
	b.engine = engine

	b.handleSet(nil, &fakeMessage{topic: "heating/DKW/59/set", payload: []byte("on")})
	b.handleSet(nil, &fakeMessage{topic: "heating/DKW/abc/set", payload: []byte("on")})
	b.handleSet(nil, &fakeMessage{topic: "heating/HG1/1/set", payload: []byte("on")})

	if len(capture.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(capture.frames))
	}
	if got := capture.frames[0][len(capture.frames[0])-1]; got != 0x01 {
		t.Fatalf("raw value = %#x, want 0x01", got)
	}
	if got := engine.Metrics().WritesRejected.Value(); got != 1 {
		t.Fatalf("writes rejected = %d, want 1", got)
	}
	if topic := b.stateTopic("DKW", 59); topic != "heating/DKW/59/state" {
		t.Fatalf("state topic = %s", topic)
	}
}

func TestEngineCollector(t *testing.T) {
	engine := createEngine()
	if err := engine.ConnectionMade(&frameCapture{}, "test"); err != nil {
		t.Fatalf("connection made: %v", err)
	}
	frame, _ := ism8.ParseHex(sampleFrame)
	engine.HandleData(frame)

	c := newEngineCollector(engine)
	// counters, three gauges, the histogram and two series per numeric datapoint
	want := len(c.counters) + 3 + 1 + 2
	if n := testutil.CollectAndCount(c); n != want {
		t.Fatalf("collected %d metrics, want %d", n, want)
	}
	if n := testutil.CollectAndCount(c, "ism8_datapoint_value"); n != 1 {
		t.Fatalf("datapoint series = %d, want 1", n)
	}
}
