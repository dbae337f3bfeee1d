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

// Package ism8 implements the Wolf ISM8 datapoint protocol for building automation systems.
package ism8

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is the TCP port the ISM8 module connects to
const DefaultPort = 12004

// Wire layout
const (
	// HeaderLength is marker + length + connection header; the payload follows
	HeaderLength = 10

	// minFrameLength is the smallest frame that still carries the ack echo bytes
	minFrameLength = 14

	// minScanLength is the smallest buffer tail from which a length can be read
	minScanLength = 9

	ackFrameLength     = 17
	readAllFrameLength = 22
)

var (
	// FrameMarker starts every frame on the wire
	FrameMarker = [4]byte{0x06, 0x20, 0xF0, 0x80}

	// ConnectionHeader follows the length field in every frame
	ConnectionHeader = [4]byte{0x04, 0x00, 0x00, 0x00}
)

// Service identifies the frame service code at bytes 10-11
type Service uint16

const (
	ServiceReceive  Service = 0xF006
	ServiceAck      Service = 0xF086
	ServiceTransmit Service = 0xF0C1
	ServiceReadAll  Service = 0xF0D0
)

func (s Service) String() string {
	switch s {
	case ServiceReceive:
		return "receive"
	case ServiceAck:
		return "ack"
	case ServiceTransmit:
		return "transmit"
	case ServiceReadAll:
		return "read-all"
	default:
		return fmt.Sprintf("service(0x%04X)", uint16(s))
	}
}

// DatapointID identifies a datapoint in the catalogue and the value store
type DatapointID uint16

// Kind is the semantic type of a decoded value
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindLabel
	KindDate
	KindTimeOfDay
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindLabel:
		return "label"
	case KindDate:
		return "date"
	case KindTimeOfDay:
		return "time-of-day"
	default:
		return "invalid"
	}
}

// ValueType is the ISM8 datapoint type (DPT) of a datapoint
type ValueType uint8

const (
	TypeUnknown ValueType = iota
	TypeBool
	TypeSwitch
	TypeEnable
	TypeOpenClose
	TypeScaledPercent
	TypeTemperature
	TypeTemperatureDelta
	TypePressure
	TypePower
	TypeVolumeFlow
	TypeFlowRateM3h
	TypeUnsignedCount8
	TypeUnsignedCount16
	TypeActiveEnergy
	TypeActiveEnergyKWh
	TypeHVACMode
	TypeDHWMode
	TypeHVACControlMode
	TypeDate
	TypeTimeOfDay
)

// typeInfo describes the fixed properties of a ValueType
type typeInfo struct {
	name    string
	kind    Kind
	unit    string
	bounded bool
	min     float64
	max     float64
}

var typeInfos = map[ValueType]typeInfo{
	TypeUnknown:          {name: "DPT_unknown", kind: KindInt},
	TypeBool:             {name: "DPT_Bool", kind: KindBool},
	TypeSwitch:           {name: "DPT_Switch", kind: KindBool},
	TypeEnable:           {name: "DPT_Enable", kind: KindBool},
	TypeOpenClose:        {name: "DPT_OpenClose", kind: KindBool},
	TypeScaledPercent:    {name: "DPT_Scaling", kind: KindFloat, unit: "%", bounded: true, min: 0, max: 100},
	TypeTemperature:      {name: "DPT_Value_Temp", kind: KindFloat, unit: "°C", bounded: true, min: -273, max: 670760},
	TypeTemperatureDelta: {name: "DPT_Tempd", kind: KindFloat, unit: "K", bounded: true, min: -670760, max: 670760},
	TypePressure:         {name: "DPT_Value_Pres", kind: KindFloat, unit: "Pa", bounded: true, min: 0, max: 670760},
	TypePower:            {name: "DPT_Power", kind: KindFloat, unit: "kW", bounded: true, min: -670760, max: 670760},
	TypeVolumeFlow:       {name: "DPT_Value_Volume_Flow", kind: KindFloat, unit: "l/h", bounded: true, min: -670760, max: 670760},
	TypeFlowRateM3h:      {name: "DPT_FlowRate_m3/h", kind: KindFloat, unit: "m³/h", bounded: true, min: 0, max: 429496.7295},
	TypeUnsignedCount8:   {name: "DPT_Value_1_Ucount", kind: KindInt, bounded: true, min: 0, max: 255},
	TypeUnsignedCount16:  {name: "DPT_Value_2_Ucount", kind: KindInt, bounded: true, min: 0, max: 65535},
	TypeActiveEnergy:     {name: "DPT_ActiveEnergy", kind: KindInt, unit: "Wh", bounded: true, min: 0, max: 4294967295},
	TypeActiveEnergyKWh:  {name: "DPT_ActiveEnergy_kWh", kind: KindInt, unit: "kWh", bounded: true, min: 0, max: 4294967295},
	TypeHVACMode:         {name: "DPT_HVACMode", kind: KindLabel},
	TypeDHWMode:          {name: "DPT_DHWMode", kind: KindLabel},
	TypeHVACControlMode:  {name: "DPT_HVACContrMode", kind: KindLabel},
	TypeDate:             {name: "DPT_Date", kind: KindDate},
	TypeTimeOfDay:        {name: "DPT_TimeOfDay", kind: KindTimeOfDay},
}

func (t ValueType) String() string {
	if info, ok := typeInfos[t]; ok {
		return info.name
	}
	return fmt.Sprintf("value-type(%d)", uint8(t))
}

// Kind returns the semantic kind a value of this type decodes to
func (t ValueType) Kind() Kind {
	if info, ok := typeInfos[t]; ok {
		return info.kind
	}
	return KindInt
}

// Unit returns the unit label of the type, or "" if it has none
func (t ValueType) Unit() string {
	return typeInfos[t].unit
}

// Bounds returns the type-wide value range, if the type has one
func (t ValueType) Bounds() (min, max float64, ok bool) {
	info := typeInfos[t]
	return info.min, info.max, info.bounded
}

// ParseValueType parses a DPT name such as "DPT_Value_Temp"
func ParseValueType(s string) (ValueType, bool) {
	s = strings.TrimSpace(s)
	for t, info := range typeInfos {
		if strings.EqualFold(info.name, s) {
			return t, true
		}
	}
	// aliases used by the ISM8 documentation
	switch strings.ToLower(s) {
	case "dpt_value_tempd":
		return TypeTemperatureDelta, true
	}
	return TypeUnknown, false
}

// Datapoint describes one entry of the datapoint catalogue
type Datapoint struct {
	ID       DatapointID
	Device   string
	Name     string
	Type     ValueType
	Writable bool
}

func (d Datapoint) String() string {
	return fmt.Sprintf("%s/%d %s", d.Device, d.ID, d.Name)
}

// Value is a decoded datapoint value
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	d    time.Duration
}

// BoolValue creates a boolean value
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// IntValue creates an integer value
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue creates a floating-point value
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// LabelValue creates an enumeration label value
func LabelValue(v string) Value { return Value{kind: KindLabel, s: v} }

// DateValue creates a calendar date value; the time of day is dropped
func DateValue(v time.Time) Value {
	y, m, d := v.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeOfDayValue creates a time-of-day value measured from midnight
func TimeOfDayValue(v time.Duration) Value { return Value{kind: KindTimeOfDay, d: v} }

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds anything
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Bool returns the boolean held by v
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer held by v
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Label returns the enumeration label held by v
func (v Value) Label() (string, bool) { return v.s, v.kind == KindLabel }

// Date returns the date held by v
func (v Value) Date() (time.Time, bool) { return v.t, v.kind == KindDate }

// TimeOfDay returns the time of day held by v
func (v Value) TimeOfDay() (time.Duration, bool) { return v.d, v.kind == KindTimeOfDay }

// Number returns the value as a float64 for range checks and metrics.
// Labels, dates and times of day are not numbers.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Interface returns the value as a plain Go value, for JSON and YAML output
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindLabel:
		return v.s
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTimeOfDay:
		return formatTimeOfDay(v.d)
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindLabel:
		return v.s
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTimeOfDay:
		return formatTimeOfDay(v.d)
	default:
		return "<invalid>"
	}
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindLabel:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	case KindTimeOfDay:
		return v.d == o.d
	default:
		return true
	}
}

func formatTimeOfDay(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// ParseValue parses text into a value of the kind the given type expects
func ParseValue(t ValueType, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t.Kind() {
	case KindBool:
		switch strings.ToLower(s) {
		case "1", "true", "on", "yes", "open", "enable", "enabled":
			return BoolValue(true), nil
		case "0", "false", "off", "no", "closed", "close", "disable", "disabled":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, s)
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, s)
		}
		return IntValue(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, s)
		}
		return FloatValue(f), nil
	case KindLabel:
		return LabelValue(s), nil
	case KindDate:
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a date (YYYY-MM-DD)", ErrTypeMismatch, s)
		}
		return DateValue(d), nil
	case KindTimeOfDay:
		for _, layout := range []string{"15:04:05", "15:04"} {
			if tod, err := time.Parse(layout, s); err == nil {
				return TimeOfDayValue(time.Duration(tod.Hour())*time.Hour +
					time.Duration(tod.Minute())*time.Minute +
					time.Duration(tod.Second())*time.Second), nil
			}
		}
		return Value{}, fmt.Errorf("%w: %q is not a time of day (HH:MM[:SS])", ErrTypeMismatch, s)
	}
	return Value{}, fmt.Errorf("%w: unsupported type %s", ErrTypeMismatch, t)
}
