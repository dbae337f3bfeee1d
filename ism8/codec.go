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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// UnknownModeLabel is decoded for enumeration codes missing from the table
const UnknownModeLabel = "unknown mode"

// Float16 layout: 1 sign bit, 4 exponent bits, 11 mantissa bits
const (
	float16SignBit     = 0x8000
	float16ExpMask     = 0x7800
	float16MantMask    = 0x07FF
	float16MaxMantissa = 2047
	float16MaxExponent = 15
)

var hvacModes = map[int64]string{
	0: "Auto",
	1: "Comfort",
	2: "Standby",
	3: "Economy",
	4: "Building Protection",
}

var dhwModes = map[int64]string{
	0: "Auto",
	1: "LegioProtect",
	2: "Normal",
	3: "Reduced",
	4: "Off",
}

var hvacControlModes = map[int64]string{
	0:  "Auto",
	1:  "Heat",
	2:  "Morning Warmup",
	3:  "Cool",
	4:  "Night Purge",
	5:  "Precool",
	6:  "Off",
	7:  "Test",
	8:  "Emergency Heat",
	9:  "Fan Only",
	10: "Free Cool",
	11: "Ice",
	12: "Maximum Heating Mode",
	13: "Economic Heat/Cool Mode",
	14: "Dehumidification",
	15: "Calibration Mode",
	16: "Emergency Cool Mode",
	17: "Emergency Steam Mode",
	20: "NoDem",
}

func enumTable(t ValueType) map[int64]string {
	switch t {
	case TypeHVACMode:
		return hvacModes
	case TypeDHWMode:
		return dhwModes
	case TypeHVACControlMode:
		return hvacControlModes
	default:
		return nil
	}
}

// EnumLabels returns the labels of an enumeration type ordered by code.
// It returns nil for non-enumeration types.
func EnumLabels(t ValueType) []string {
	table := enumTable(t)
	if table == nil {
		return nil
	}
	codes := make([]int64, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	labels := make([]string, len(codes))
	for i, code := range codes {
		labels[i] = table[code]
	}
	return labels
}

// rawUint concatenates raw big-endian
func rawUint(raw []byte) (uint64, error) {
	if len(raw) > 8 {
		return 0, fmt.Errorf("%w: %d-byte value exceeds 8 bytes", ErrMalformedFrame, len(raw))
	}
	var result uint64
	for _, b := range raw {
		result = result<<8 | uint64(b)
	}
	return result, nil
}

// DecodeValue converts raw datapoint bytes into a value of the given type
func DecodeValue(t ValueType, raw []byte) (Value, error) {
	switch t {
	case TypeDate:
		return decodeDate(raw)
	case TypeTimeOfDay:
		return decodeTimeOfDay(raw)
	}

	result, err := rawUint(raw)
	if err != nil {
		return Value{}, err
	}

	switch t {
	case TypeBool, TypeSwitch, TypeEnable, TypeOpenClose:
		return BoolValue(result&1 != 0), nil

	case TypeScaledPercent:
		return FloatValue(float64(result) * 100 / 255), nil

	case TypeTemperature, TypeTemperatureDelta, TypePressure, TypePower, TypeVolumeFlow:
		return FloatValue(DecodeFloat16(uint16(result))), nil

	case TypeFlowRateM3h:
		return FloatValue(float64(result) / 10000), nil

	case TypeHVACMode, TypeDHWMode, TypeHVACControlMode:
		label, ok := enumTable(t)[int64(result)]
		if !ok {
			label = UnknownModeLabel
		}
		return LabelValue(label), nil

	default:
		// integer family and unknown types
		return IntValue(int64(result)), nil
	}
}

// EncodeValue converts a value into the raw bytes of the given type.
// The value kind must match the kind of the type.
func EncodeValue(t ValueType, v Value) ([]byte, error) {
	if v.Kind() != t.Kind() {
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, t, t.Kind(), v.Kind())
	}

	switch t {
	case TypeBool, TypeSwitch, TypeEnable, TypeOpenClose:
		if b, _ := v.Bool(); b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeScaledPercent:
		f, _ := v.Float()
		scaled := math.Round(f * 255 / 100)
		if math.IsNaN(scaled) || scaled < 0 || scaled > 255 {
			return nil, fmt.Errorf("%w: %v%% does not fit one byte", ErrOutOfRange, f)
		}
		return []byte{byte(scaled)}, nil

	case TypeTemperature, TypeTemperatureDelta, TypePressure, TypePower, TypeVolumeFlow:
		f, _ := v.Float()
		enc, err := EncodeFloat16(f)
		if err != nil {
			return nil, err
		}
		return []byte{byte(enc >> 8), byte(enc)}, nil

	case TypeFlowRateM3h:
		f, _ := v.Float()
		scaled := math.Round(f * 10000)
		if math.IsNaN(scaled) || scaled < 0 || scaled > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %v m³/h does not fit four bytes", ErrOutOfRange, f)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(scaled))
		return buf, nil

	case TypeUnsignedCount8:
		i, _ := v.Int()
		return encodeUnsigned(i, 1)
	case TypeUnsignedCount16:
		i, _ := v.Int()
		return encodeUnsigned(i, 2)
	case TypeActiveEnergy, TypeActiveEnergyKWh:
		i, _ := v.Int()
		return encodeUnsigned(i, 4)

	case TypeHVACMode, TypeDHWMode, TypeHVACControlMode:
		label, _ := v.Label()
		code, ok := lookupEnumCode(enumTable(t), label)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a %s label", ErrInvalidEnumValue, label, t)
		}
		return []byte{byte(code)}, nil

	case TypeDate:
		d, _ := v.Date()
		return encodeDate(d)

	case TypeTimeOfDay:
		d, _ := v.TimeOfDay()
		return encodeTimeOfDay(d)

	default:
		i, _ := v.Int()
		return encodeUnsigned(i, minimalWidth(i))
	}
}

func lookupEnumCode(table map[int64]string, label string) (int64, bool) {
	label = strings.TrimSpace(label)
	for code, name := range table {
		if strings.EqualFold(name, label) {
			return code, true
		}
	}
	return 0, false
}

func minimalWidth(i int64) int {
	width := 1
	for u := uint64(i) >> 8; u != 0; u >>= 8 {
		width++
	}
	return width
}

func encodeUnsigned(i int64, width int) ([]byte, error) {
	if i < 0 || (width < 8 && uint64(i) >= 1<<(8*uint(width))) {
		return nil, fmt.Errorf("%w: %d does not fit %d unsigned byte(s)", ErrOutOfRange, i, width)
	}
	buf := make([]byte, width)
	for n := width - 1; n >= 0; n-- {
		buf[n] = byte(i)
		i >>= 8
	}
	return buf, nil
}

// DecodeFloat16 decodes the ISM8 16-bit float: value = 0.01 * mantissa * 2^exponent
func DecodeFloat16(raw uint16) float64 {
	exp := (raw & float16ExpMask) >> 11
	mant := int64(raw & float16MantMask)
	if raw&float16SignBit != 0 {
		mant = -(^(mant - 1) & float16MantMask)
	}
	return float64(mant) * float64(int64(1)<<exp) / 100
}

// EncodeFloat16 encodes a value into the ISM8 16-bit float.
// The value is rounded to two decimals and the smallest exponent whose
// mantissa fits 11 bits is chosen.
func EncodeFloat16(v float64) (uint16, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrOutOfRange, v)
	}
	hundredths := math.Round(v * 100)

	// halve the magnitude until it fits the mantissa
	exp := 0
	for mag := math.Abs(hundredths); mag > float16MaxMantissa; exp++ {
		if exp >= float16MaxExponent {
			return 0, fmt.Errorf("%w: %v exceeds the float16 range", ErrOutOfRange, v)
		}
		mag = math.RoundToEven(mag / 2)
	}

	for ; exp <= float16MaxExponent; exp++ {
		mant := int64(math.Round(hundredths / float64(int64(1)<<exp)))
		if mant > float16MaxMantissa || mant < -float16MaxMantissa {
			continue
		}
		var enc uint16
		if mant < 0 {
			enc = float16SignBit
		}
		enc |= uint16(exp) << 11
		enc |= uint16(mant) & float16MantMask
		return enc, nil
	}
	return 0, fmt.Errorf("%w: %v exceeds the float16 range", ErrOutOfRange, v)
}

// KNX 11.001 date: day, month, two-digit year
func decodeDate(raw []byte) (Value, error) {
	if len(raw) != 3 {
		return Value{}, fmt.Errorf("%w: date needs 3 bytes, got %d", ErrMalformedFrame, len(raw))
	}
	day := int(raw[0] & 0x1F)
	month := int(raw[1] & 0x0F)
	year := int(raw[2] & 0x7F)
	if year < 90 {
		year += 2000
	} else {
		year += 1900
	}
	if day < 1 || month < 1 || month > 12 {
		return Value{}, fmt.Errorf("%w: invalid date %02d.%02d.%d", ErrMalformedFrame, day, month, year)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return Value{}, fmt.Errorf("%w: invalid date %02d.%02d.%d", ErrMalformedFrame, day, month, year)
	}
	return DateValue(d), nil
}

func encodeDate(d time.Time) ([]byte, error) {
	year := d.Year()
	if year < 1990 || year > 2089 {
		return nil, fmt.Errorf("%w: year %d outside 1990-2089", ErrOutOfRange, year)
	}
	return []byte{byte(d.Day()), byte(d.Month()), byte(year % 100)}, nil
}

// KNX 10.001 time of day: weekday and hour, minute, second
func decodeTimeOfDay(raw []byte) (Value, error) {
	if len(raw) != 3 {
		return Value{}, fmt.Errorf("%w: time of day needs 3 bytes, got %d", ErrMalformedFrame, len(raw))
	}
	hour := int(raw[0] & 0x1F)
	minute := int(raw[1] & 0x3F)
	second := int(raw[2] & 0x3F)
	if hour > 23 || minute > 59 || second > 59 {
		return Value{}, fmt.Errorf("%w: invalid time %02d:%02d:%02d", ErrMalformedFrame, hour, minute, second)
	}
	return TimeOfDayValue(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second), nil
}

func encodeTimeOfDay(d time.Duration) ([]byte, error) {
	if d < 0 || d >= 24*time.Hour {
		return nil, fmt.Errorf("%w: %s is not a time of day", ErrOutOfRange, d)
	}
	s := int(d / time.Second)
	return []byte{byte(s / 3600), byte((s / 60) % 60), byte(s % 60)}, nil
}
