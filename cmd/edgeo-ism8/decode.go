package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/edgeo/drivers/ism8/ism8"
)

var decodeFile string

var decodeCmd = &cobra.Command{
	Use:   "decode [hex]...",
	Short: "Decode captured ISM8 frames",
	Long: `Decode feeds captured bytes through the same reassembly and decoding
path used by serve, and prints the datapoints they carry together with
the acknowledgements that would be sent.

Each argument (or each line of --file) is one received chunk, so frames
split across reads can be reproduced.

Examples:
  # Decode one frame
  edgeo-ism8 decode "06 20 f0 80 00 15 04 00 00 00 f0 06 00 01 00 01 00 01 03 01 01"

  # Decode a capture file, one chunk per line
  edgeo-ism8 decode --file capture.txt -o json

  # Read chunks from stdin
  cat capture.txt | edgeo-ism8 decode --file -`,

	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "", "Read hex chunks from a file, one per line (- for stdin)")
}

// frameCapture records every frame the engine sends
type frameCapture struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *frameCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), p...))
	return len(p), nil
}

type decodedRecord struct {
	ID     uint16      `json:"id" yaml:"id"`
	Device string      `json:"device,omitempty" yaml:"device,omitempty"`
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	Type   string      `json:"type" yaml:"type"`
	Value  interface{} `json:"value" yaml:"value"`
	Unit   string      `json:"unit,omitempty" yaml:"unit,omitempty"`
}

type decodeResult struct {
	Datapoints []decodedRecord `json:"datapoints" yaml:"datapoints"`
	Acks       []string        `json:"acks" yaml:"acks"`
	Discarded  int64           `json:"discarded_frames" yaml:"discarded_frames"`
	Pending    int             `json:"pending_bytes" yaml:"pending_bytes"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	chunks, err := readChunks(args, decodeFile)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no data to decode: pass hex arguments or --file")
	}

	result, err := decodeChunks(chunks)
	if err != nil {
		return err
	}

	f := newFormatter()
	switch f.Format() {
	case FormatJSON, FormatYAML:
		return f.PrintRecords(nil, nil, result)
	}

	headers := []string{"ID", "Device", "Name", "Type", "Value", "Unit"}
	rows := make([][]string, 0, len(result.Datapoints))
	for _, r := range result.Datapoints {
		rows = append(rows, []string{
			strconv.Itoa(int(r.ID)), r.Device, r.Name, r.Type, fmt.Sprint(r.Value), r.Unit,
		})
	}
	if err := f.PrintRecords(headers, rows, result.Datapoints); err != nil {
		return err
	}
	if f.Format() == FormatTable {
		f.Println()
		for _, ack := range result.Acks {
			f.Printf("ack: %s\n", ack)
		}
		if result.Discarded > 0 {
			f.Printf("discarded frames: %d\n", result.Discarded)
		}
		if result.Pending > 0 {
			f.Printf("incomplete trailing bytes: %d\n", result.Pending)
		}
	}
	return nil
}

// decodeChunks runs the chunks through an offline engine
func decodeChunks(chunks [][]byte) (*decodeResult, error) {
	result := &decodeResult{}
	engine := createEngine(ism8.WithUpdateHandler(func(dp ism8.Datapoint, sv ism8.StoredValue) {
		result.Datapoints = append(result.Datapoints, decodedRecord{
			ID:     uint16(sv.ID),
			Device: dp.Device,
			Name:   dp.Name,
			Type:   dp.Type.String(),
			Value:  sv.Value.Interface(),
			Unit:   dp.Type.Unit(),
		})
	}))

	capture := &frameCapture{}
	if err := engine.ConnectionMade(capture, "capture"); err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		engine.HandleData(chunk)
	}

	for _, frame := range capture.frames {
		result.Acks = append(result.Acks, ism8.FormatHex(frame))
	}
	result.Discarded = engine.Metrics().FramesDiscarded.Value()
	result.Pending = engine.PendingBytes()
	return result, nil
}

// readChunks collects hex chunks from the arguments and the optional file
func readChunks(args []string, file string) ([][]byte, error) {
	var chunks [][]byte
	for _, arg := range args {
		b, err := ism8.ParseHex(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		chunks = append(chunks, b)
	}
	if file == "" {
		return chunks, nil
	}

	var r io.Reader = os.Stdin
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		r = fh
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		b, err := ism8.ParseHex(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", file, line, err)
		}
		chunks = append(chunks, b)
	}
	return chunks, scanner.Err()
}
