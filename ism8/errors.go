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
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrMalformedFrame   = errors.New("ism8: malformed frame")
	ErrUnknownDatapoint = errors.New("ism8: unknown datapoint")
	ErrNotWritable      = errors.New("ism8: datapoint is read-only")
	ErrTypeMismatch     = errors.New("ism8: value type mismatch")
	ErrOutOfRange       = errors.New("ism8: value out of range")
	ErrInvalidEnumValue = errors.New("ism8: invalid enumeration value")
	ErrNotConnected     = errors.New("ism8: not connected")
	ErrConnectionClosed = errors.New("ism8: connection closed")
	ErrAlreadyConnected = errors.New("ism8: already connected")
)

// FrameReason describes why inbound bytes were dropped
type FrameReason uint8

const (
	FrameReasonNoMarker FrameReason = iota
	FrameReasonTruncated
	FrameReasonShortLength
	FrameReasonTruncatedEntry
)

func (r FrameReason) String() string {
	names := map[FrameReason]string{
		FrameReasonNoMarker:       "no-marker",
		FrameReasonTruncated:      "length-exceeds-buffer",
		FrameReasonShortLength:    "length-below-minimum",
		FrameReasonTruncatedEntry: "truncated-entry",
	}
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("frame-reason(%d)", r)
}

// FrameError reports bytes discarded by the reassembler or the payload parser
type FrameError struct {
	Reason    FrameReason
	Length    int // declared length, if any
	Available int // bytes that were available
	Discarded int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("ism8: malformed frame: reason=%s, length=%d, available=%d, discarded=%d",
		e.Reason, e.Length, e.Available, e.Discarded)
}

func (e *FrameError) Unwrap() error {
	return ErrMalformedFrame
}

// ValidationError is returned when an outbound write is rejected
type ValidationError struct {
	ID    DatapointID
	Value Value
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ism8: cannot write %s to datapoint %d: %v", e.Value, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if the error rejected an outbound write
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsNotConnected returns true if the error was caused by a missing connection
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionClosed)
}

// IsMalformedFrame returns true if the error reports discarded inbound bytes
func IsMalformedFrame(err error) bool {
	return errors.Is(err, ErrMalformedFrame)
}
