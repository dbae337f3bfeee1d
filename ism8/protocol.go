// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ism8

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// FrameHeader is the fixed header of every ISM8 frame including the service code
type FrameHeader struct {
	Length  uint16
	Service Service
}

// DecodeHeader decodes a frame header; data must start at the marker
func DecodeHeader(data []byte) (*FrameHeader, error) {
	if len(data) < HeaderLength+2 {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", ErrMalformedFrame, HeaderLength+2, len(data))
	}
	if [4]byte(data[0:4]) != FrameMarker {
		return nil, fmt.Errorf("%w: missing frame marker", ErrMalformedFrame)
	}
	return &FrameHeader{
		Length:  binary.BigEndian.Uint16(data[4:6]),
		Service: Service(binary.BigEndian.Uint16(data[HeaderLength : HeaderLength+2])),
	}, nil
}

// encodeHeader writes marker, length, connection header and service
func encodeHeader(buf []byte, length int, service Service) []byte {
	buf = append(buf, FrameMarker[:]...)
	buf = append(buf, byte(length>>8), byte(length))
	buf = append(buf, ConnectionHeader[:]...)
	buf = append(buf, byte(service>>8), byte(service))
	return buf
}

// BuildAckFrame builds the acknowledgment for a received frame.
// Bytes 12-13 of the received frame are echoed so the module can correlate.
func BuildAckFrame(received []byte) []byte {
	buf := make([]byte, 0, ackFrameLength)
	buf = encodeHeader(buf, ackFrameLength, ServiceAck)
	buf = append(buf, 0, 0, 0, 0, 0)
	if len(received) >= minFrameLength {
		buf[12] = received[12]
		buf[13] = received[13]
	}
	return buf
}

// BuildReadAllFrame builds the request asking the module to send every datapoint.
// The length field announces 22 bytes while only the 12 header bytes are
// sent, which is what the module firmware expects.
func BuildReadAllFrame() []byte {
	return encodeHeader(make([]byte, 0, HeaderLength+2), readAllFrameLength, ServiceReadAll)
}

// BuildTransmitFrame builds a write request carrying one encoded datapoint value
func BuildTransmitFrame(id DatapointID, raw []byte) []byte {
	buf := make([]byte, 0, HeaderLength+10+len(raw))
	buf = encodeHeader(buf, 0, ServiceTransmit)
	buf = append(buf, byte(id>>8), byte(id)) // addressed object
	buf = append(buf, 0x00, 0x01)            // entry count
	buf = append(buf, byte(id>>8), byte(id))
	buf = append(buf, 0x00) // command
	buf = append(buf, byte(len(raw)))
	buf = append(buf, raw...)

	binary.BigEndian.PutUint16(buf[4:6], uint16(len(buf)))
	return buf
}

// Entry is one datapoint record inside a payload
type Entry struct {
	ID      DatapointID
	Command uint8
	Raw     []byte
}

// Payload is the decoded body of a frame, everything after the connection header
type Payload struct {
	Service Service
	StartID DatapointID
	Count   int
	Entries []Entry
}

// ParsePayload decodes the body that follows the frame header.
// When an entry is truncated the entries before it are returned together
// with an ErrMalformedFrame error.
func ParsePayload(body []byte) (*Payload, error) {
	if len(body) < 6 {
		return nil, &FrameError{Reason: FrameReasonTruncatedEntry, Length: 6, Available: len(body), Discarded: len(body)}
	}

	p := &Payload{
		Service: Service(binary.BigEndian.Uint16(body[0:2])),
		StartID: DatapointID(binary.BigEndian.Uint16(body[2:4])),
		Count:   int(binary.BigEndian.Uint16(body[4:6])),
	}
	// each entry needs at least 4 bytes, so the count cannot size the slice alone
	p.Entries = make([]Entry, 0, min(p.Count, (len(body)-6)/4))

	offset := 6
	for n := 0; n < p.Count; n++ {
		if len(body) < offset+4 {
			return p, &FrameError{Reason: FrameReasonTruncatedEntry, Length: offset + 4, Available: len(body), Discarded: len(body) - offset}
		}
		id := DatapointID(binary.BigEndian.Uint16(body[offset : offset+2]))
		cmd := body[offset+2]
		length := int(body[offset+3])
		offset += 4

		if len(body) < offset+length {
			return p, &FrameError{Reason: FrameReasonTruncatedEntry, Length: offset + length, Available: len(body), Discarded: len(body) - offset + 4}
		}
		raw := make([]byte, length)
		copy(raw, body[offset:offset+length])
		offset += length

		p.Entries = append(p.Entries, Entry{ID: id, Command: cmd, Raw: raw})
	}
	return p, nil
}

// FormatHex renders bytes as space separated hex pairs for logs
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(hex.EncodeToString([]byte{b}))
	}
	return sb.String()
}

// ParseHex parses hex text, ignoring whitespace and an optional 0x prefix
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ":", "")
	return hex.DecodeString(s)
}
