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
	"bytes"
	"encoding/binary"
)

// Message is one complete frame cut out of the inbound stream
type Message struct {
	// Raw is the whole frame starting at the marker
	Raw []byte
	// Payload is Raw[HeaderLength:], starting with the service code
	Payload []byte
}

// Reassembler cuts length-framed messages out of arbitrarily sized reads.
//
// A marker followed by fewer than 9 bytes is retained for the next read.
// A marker whose length field claims more bytes than the buffer holds is
// discarded together with everything after it; the module sends whole
// frames per write, so a short frame is treated as broken rather than
// waited for. A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf []byte

	// OnDiscard is called for every run of dropped bytes, if set
	OnDiscard func(err *FrameError)
}

// Feed appends chunk to the retained bytes and returns every complete message
func (r *Reassembler) Feed(chunk []byte) []Message {
	data := chunk
	if len(r.buf) > 0 {
		data = append(r.buf, chunk...)
		r.buf = nil
	}

	var msgs []Message
	cursor := 0
	for cursor < len(data) {
		idx := bytes.Index(data[cursor:], FrameMarker[:])
		if idx < 0 {
			r.discard(&FrameError{Reason: FrameReasonNoMarker, Available: len(data) - cursor, Discarded: len(data) - cursor})
			return msgs
		}
		start := cursor + idx
		if idx > 0 {
			r.discard(&FrameError{Reason: FrameReasonNoMarker, Available: idx, Discarded: idx})
		}

		avail := len(data) - start
		if avail < minScanLength {
			r.buf = append([]byte(nil), data[start:]...)
			return msgs
		}

		length := int(binary.BigEndian.Uint16(data[start+4 : start+6]))
		if length < minFrameLength {
			r.discard(&FrameError{Reason: FrameReasonShortLength, Length: length, Available: avail, Discarded: avail})
			return msgs
		}
		if avail < length {
			r.discard(&FrameError{Reason: FrameReasonTruncated, Length: length, Available: avail, Discarded: avail})
			return msgs
		}

		raw := make([]byte, length)
		copy(raw, data[start:start+length])
		msgs = append(msgs, Message{Raw: raw, Payload: raw[HeaderLength:]})
		cursor = start + length
	}
	return msgs
}

func (r *Reassembler) discard(err *FrameError) {
	if r.OnDiscard != nil {
		r.OnDiscard(err)
	}
}

// Pending returns the number of retained bytes waiting for more data
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Reset drops any retained bytes
func (r *Reassembler) Reset() {
	r.buf = nil
}
