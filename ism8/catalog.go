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
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Catalog resolves datapoint ids to their static description
type Catalog interface {
	// Lookup returns the datapoint description for id
	Lookup(id DatapointID) (Datapoint, bool)

	// AllowedValues returns the write domain registered for id, if any
	AllowedValues(id DatapointID) (Domain, bool)
}

// Domain is the set of values a writable datapoint accepts.
// It is either a discrete set or an inclusive range with an optional step.
type Domain struct {
	values []float64
	min    float64
	max    float64
	step   float64
}

// DiscreteDomain creates a domain holding exactly the given values
func DiscreteDomain(values ...float64) Domain {
	v := make([]float64, 0, len(values))
	v = append(v, values...)
	sort.Float64s(v)
	return Domain{values: v}
}

// RangeDomain creates an inclusive range; step 0 means continuous
func RangeDomain(min, max, step float64) Domain {
	return Domain{min: min, max: max, step: step}
}

// IsDiscrete reports whether the domain is an enumerated set
func (d Domain) IsDiscrete() bool {
	return d.values != nil
}

// Values returns the members of a discrete domain
func (d Domain) Values() []float64 {
	return append([]float64(nil), d.values...)
}

// Bounds returns the smallest and largest member of the domain
func (d Domain) Bounds() (min, max float64) {
	if d.IsDiscrete() {
		if len(d.values) == 0 {
			return 0, 0
		}
		return d.values[0], d.values[len(d.values)-1]
	}
	return d.min, d.max
}

// Step returns the range step, 0 for continuous ranges and discrete sets
func (d Domain) Step() float64 {
	return d.step
}

const domainEpsilon = 1e-9

// Contains reports whether x is a member of the domain
func (d Domain) Contains(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if d.IsDiscrete() {
		for _, v := range d.values {
			if math.Abs(v-x) < domainEpsilon {
				return true
			}
		}
		return false
	}
	if x < d.min-domainEpsilon || x > d.max+domainEpsilon {
		return false
	}
	if d.step == 0 {
		return true
	}
	n := (x - d.min) / d.step
	return math.Abs(n-math.Round(n)) < domainEpsilon
}

func (d Domain) String() string {
	if d.IsDiscrete() {
		parts := make([]string, len(d.values))
		for i, v := range d.values {
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	s := fmt.Sprintf("[%s..%s]",
		strconv.FormatFloat(d.min, 'f', -1, 64),
		strconv.FormatFloat(d.max, 'f', -1, 64))
	if d.step != 0 {
		s += " step " + strconv.FormatFloat(d.step, 'f', -1, 64)
	}
	return s
}

// StaticCatalog is an immutable in-memory Catalog
type StaticCatalog struct {
	points  map[DatapointID]Datapoint
	domains map[DatapointID]Domain
	devices map[string]string
}

// NewCatalog creates a catalog from a list of datapoints and write domains
func NewCatalog(points []Datapoint, domains map[DatapointID]Domain) *StaticCatalog {
	c := &StaticCatalog{
		points:  make(map[DatapointID]Datapoint, len(points)),
		domains: make(map[DatapointID]Domain, len(domains)),
		devices: make(map[string]string),
	}
	for _, p := range points {
		c.points[p.ID] = p
	}
	for id, d := range domains {
		c.domains[id] = d
	}
	return c
}

// Lookup returns the datapoint description for id
func (c *StaticCatalog) Lookup(id DatapointID) (Datapoint, bool) {
	p, ok := c.points[id]
	return p, ok
}

// AllowedValues returns the write domain registered for id
func (c *StaticCatalog) AllowedValues(id DatapointID) (Domain, bool) {
	d, ok := c.domains[id]
	return d, ok
}

// Datapoints returns every datapoint ordered by id
func (c *StaticCatalog) Datapoints() []Datapoint {
	out := make([]Datapoint, 0, len(c.points))
	for _, p := range c.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Devices returns the device codes present in the catalog, sorted
func (c *StaticCatalog) Devices() []string {
	seen := make(map[string]struct{})
	for _, p := range c.points {
		seen[p.Device] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DeviceName returns the long name of a device code, or the code itself
func (c *StaticCatalog) DeviceName(code string) string {
	if name, ok := c.devices[code]; ok {
		return name
	}
	return code
}

// Len returns the number of datapoints
func (c *StaticCatalog) Len() int {
	return len(c.points)
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *StaticCatalog
)

// DefaultCatalog returns the catalogue of the Wolf ISM8 datapoint list
func DefaultCatalog() *StaticCatalog {
	defaultCatalogOnce.Do(func() {
		points := make([]Datapoint, 0, len(wolfDatapoints))
		for id, row := range wolfDatapoints {
			points = append(points, Datapoint{
				ID:       id,
				Device:   row.device,
				Name:     row.name,
				Type:     row.typ,
				Writable: row.writable,
			})
		}
		defaultCatalog = NewCatalog(points, wolfDomains())
		for code, name := range wolfDevices {
			defaultCatalog.devices[code] = name
		}
	})
	return defaultCatalog
}

var wolfDevices = map[string]string{
	"HG1": "Heizgeraet (1) TOB, CGB-2, MGK-2, COB-2 oder TGB-2",
	"HG2": "Heizgeraet (2) TOB, CGB-2, MGK-2, COB-2 oder TGB-2",
	"HG3": "Heizgeraet (3) TOB, CGB-2, MGK-2, COB-2 oder TGB-2",
	"HG4": "Heizgeraet (4) TOB, CGB-2, MGK-2, COB-2 oder TGB-2",
	"SYM": "Systembedienmodul",
	"DKW": "Direkter Heizkreis + direktes Warmwasser",
	"MK1": "Mischerkreis 1 + Warmwasser 1",
	"MK2": "Mischerkreis 2 + Warmwasser 2",
	"MK3": "Mischerkreis 3 + Warmwasser 3",
	"KM":  "Kaskadenmodul",
	"MM1": "Mischermodule 1",
	"MM2": "Mischermodule 2",
	"MM3": "Mischermodule 3",
	"SM":  "Solarmodul",
	"CWL": "CWL Excellent / CWL 2",
	"BWL": "Heizgeraet (1) BWL-1S oder CHA",
	"BM2": "BM-2 Bedienmodul",
}

func wolfDomains() map[DatapointID]Domain {
	domains := make(map[DatapointID]Domain)
	onOff := DiscreteDomain(0, 1)

	// heating circuits DKW, MK1, MK2, MK3 share one layout
	for _, base := range []DatapointID{56, 69, 82, 95} {
		domains[base] = RangeDomain(20, 80, 0)
		domains[base+1] = RangeDomain(0, 3, 1)
		domains[base+2] = DiscreteDomain(0, 2, 4)
		// time programs
		for i := DatapointID(3); i <= 8; i++ {
			domains[base+i] = onOff
		}
	}
	domains[65] = RangeDomain(-40, 40, 5)
	domains[66] = RangeDomain(0, 100, 5)
	domains[78] = RangeDomain(-4, 4, 0.5)
	domains[79] = RangeDomain(0, 10, 0.5)
	domains[91] = RangeDomain(-40, 40, 5)
	domains[92] = RangeDomain(0, 100, 5)
	domains[104] = onOff
	domains[105] = onOff

	domains[149] = DiscreteDomain(0, 1, 3)
	for _, id := range []DatapointID{150, 151, 152, 153, 158, 193, 194} {
		domains[id] = onOff
	}
	return domains
}

type catalogRow struct {
	device   string
	name     string
	typ      ValueType
	writable bool
}

var wolfDatapoints = map[DatapointID]catalogRow{
	1: {"HG1", "Stoerung", TypeSwitch, false},
	2: {"HG1", "Betriebsart", TypeHVACControlMode, false},
	3: {"HG1", "Brennerleistung", TypeScaledPercent, false},
	4: {"HG1", "Kesseltemperatur", TypeTemperature, false},
	5: {"HG1", "Sammlertemperatur", TypeTemperature, false},
	6: {"HG1", "Ruecklauftemperatur", TypeTemperature, false},
	7: {"HG1", "Warmwassertemperatur", TypeTemperature, false},
	8: {"HG1", "Aussentemperatur", TypeTemperature, false},
	9: {"HG1", "Status Brenner", TypeSwitch, false},
	10: {"HG1", "Status Heizkreispumpe", TypeSwitch, false},
	11: {"HG1", "Status Speicherladepumpe", TypeSwitch, false},
	12: {"HG1", "Status 3W-Umschaltventil", TypeOpenClose, false},
	13: {"HG1", "Anlagendruck", TypePressure, false},
	14: {"HG2", "Stoerung", TypeSwitch, false},
	15: {"HG2", "Betriebsart", TypeHVACControlMode, false},
	16: {"HG2", "Brennerleistung", TypeScaledPercent, false},
	17: {"HG2", "Kesseltemperatur", TypeTemperature, false},
	18: {"HG2", "Sammlertemperatur", TypeTemperature, false},
	19: {"HG2", "Ruecklauftemperatur", TypeTemperature, false},
	20: {"HG2", "Warmwassertemperatur", TypeTemperature, false},
	21: {"HG2", "Aussentemperatur", TypeTemperature, false},
	22: {"HG2", "Status Brenner", TypeSwitch, false},
	23: {"HG2", "Status Heizkreispumpe", TypeSwitch, false},
	24: {"HG2", "Status Speicherladepumpe", TypeSwitch, false},
	25: {"HG2", "Status 3W-Umschaltventil", TypeOpenClose, false},
	26: {"HG2", "Anlagendruck", TypePressure, false},
	27: {"HG3", "Stoerung", TypeSwitch, false},
	28: {"HG3", "Betriebsart", TypeHVACControlMode, false},
	29: {"HG3", "Brennerleistung", TypeScaledPercent, false},
	30: {"HG3", "Kesseltemperatur", TypeTemperature, false},
	31: {"HG3", "Sammlertemperatur", TypeTemperature, false},
	32: {"HG3", "Ruecklauftemperatur", TypeTemperature, false},
	33: {"HG3", "Warmwassertemperatur", TypeTemperature, false},
	34: {"HG3", "Aussentemperatur", TypeTemperature, false},
	35: {"HG3", "Status Brenner", TypeSwitch, false},
	36: {"HG3", "Status Heizkreispumpe", TypeSwitch, false},
	37: {"HG3", "Status Speicherladepumpe", TypeSwitch, false},
	38: {"HG3", "Status 3W-Umschaltventil", TypeOpenClose, false},
	39: {"HG3", "Anlagendruck", TypePressure, false},
	40: {"HG4", "Stoerung", TypeSwitch, false},
	41: {"HG4", "Betriebsart", TypeHVACControlMode, false},
	42: {"HG4", "Brennerleistung", TypeScaledPercent, false},
	43: {"HG4", "Kesseltemperatur", TypeTemperature, false},
	44: {"HG4", "Sammlertemperatur", TypeTemperature, false},
	45: {"HG4", "Ruecklauftemperatur", TypeTemperature, false},
	46: {"HG4", "Warmwassertemperatur", TypeTemperature, false},
	47: {"HG4", "Aussentemperatur", TypeTemperature, false},
	48: {"HG4", "Status Brenner", TypeSwitch, false},
	49: {"HG4", "Status Heizkreispumpe", TypeSwitch, false},
	50: {"HG4", "Status Speicherladepumpe", TypeSwitch, false},
	51: {"HG4", "Status 3W-Umschaltventil", TypeOpenClose, false},
	52: {"HG4", "Anlagendruck", TypePressure, false},
	53: {"SYM", "Stoerung", TypeSwitch, false},
	54: {"SYM", "Aussentemperatur", TypeTemperature, false},
	55: {"DKW", "Raumtemperatur", TypeTemperature, false},
	56: {"DKW", "Warmwassersolltemperatur", TypeTemperature, true},
	57: {"DKW", "Programmwahl Heizkreis", TypeHVACMode, true},
	58: {"DKW", "Programmwahl Warmwasser", TypeDHWMode, true},
	59: {"DKW", "Heizkreis Zeitprogramm 1", TypeSwitch, true},
	60: {"DKW", "Heizkreis Zeitprogramm 2", TypeSwitch, true},
	61: {"DKW", "Heizkreis Zeitprogramm 3", TypeSwitch, true},
	62: {"DKW", "Warmwasser Zeitprogramm 1", TypeSwitch, true},
	63: {"DKW", "Warmwasser Zeitprogramm 2", TypeSwitch, true},
	64: {"DKW", "Warmwasser Zeitprogramm 3", TypeSwitch, true},
	65: {"DKW", "Sollwertkorrektur", TypeTemperatureDelta, true},
	66: {"DKW", "Sparfaktor", TypeTemperatureDelta, true},
	67: {"MK1", "Stoerung", TypeSwitch, false},
	68: {"MK1", "Raumtemperatur", TypeTemperature, false},
	69: {"MK1", "Warmwassersolltemperatur", TypeTemperature, true},
	70: {"MK1", "Programmwahl Mischer", TypeHVACMode, true},
	71: {"MK1", "Programmwahl Warmwasser", TypeDHWMode, true},
	72: {"MK1", "Mischer Zeitprogramm 1", TypeSwitch, true},
	73: {"MK1", "Mischer Zeitprogramm 2", TypeSwitch, true},
	74: {"MK1", "Mischer Zeitprogramm 3", TypeSwitch, true},
	75: {"MK1", "Warmwasser Zeitprogramm 1", TypeSwitch, true},
	76: {"MK1", "Warmwasser Zeitprogramm 2", TypeSwitch, true},
	77: {"MK1", "Warmwasser Zeitprogramm 3", TypeSwitch, true},
	78: {"MK1", "Sollwertkorrektur", TypeTemperatureDelta, true},
	79: {"MK1", "Sparfaktor", TypeTemperatureDelta, true},
	80: {"MK2", "Stoerung", TypeSwitch, false},
	82: {"MK2", "Warmwassersolltemperatur", TypeTemperature, true},
	83: {"MK2", "Programmwahl Mischer", TypeHVACMode, true},
	84: {"MK2", "Programmwahl Warmwasser", TypeDHWMode, true},
	85: {"MK2", "Mischer Zeitprogramm 1", TypeSwitch, true},
	86: {"MK2", "Mischer Zeitprogramm 2", TypeSwitch, true},
	87: {"MK2", "Mischer Zeitprogramm 3", TypeSwitch, true},
	88: {"MK2", "Warmwasser Zeitprogramm 1", TypeSwitch, true},
	89: {"MK2", "Warmwasser Zeitprogramm 2", TypeSwitch, true},
	90: {"MK2", "Warmwasser Zeitprogramm 3", TypeSwitch, true},
	91: {"MK2", "Sollwertkorrektur", TypeTemperatureDelta, true},
	92: {"MK2", "Sparfaktor", TypeTemperatureDelta, true},
	94: {"MK3", "Raumtemperatur", TypeTemperature, false},
	95: {"MK3", "Warmwassersolltemperatur", TypeTemperature, true},
	96: {"MK3", "Programmwahl Mischer", TypeHVACMode, true},
	97: {"MK3", "Programmwahl Warmwasser", TypeDHWMode, true},
	98: {"MK3", "Mischer Zeitprogramm 1", TypeSwitch, true},
	99: {"MK3", "Mischer Zeitprogramm 2", TypeSwitch, true},
	100: {"MK3", "Mischer Zeitprogramm 3", TypeSwitch, true},
	101: {"MK3", "Warmwasser Zeitprogramm 1", TypeSwitch, true},
	102: {"MK3", "Warmwasser Zeitprogramm 2", TypeSwitch, true},
	103: {"MK3", "Warmwasser Zeitprogramm 3", TypeSwitch, true},
	104: {"MK3", "Sollwertkorrektur", TypeTemperatureDelta, true},
	105: {"MK3", "Sparfaktor", TypeTemperatureDelta, true},
	106: {"KM", "Stoerung", TypeSwitch, false},
	107: {"KM", "Sammlertemperatur", TypeTemperature, false},
	108: {"KM", "Gesamtmodulationsgrad", TypeScaledPercent, false},
	109: {"KM", "Vorlauftemperatur Mischer", TypeTemperature, false},
	110: {"KM", "Status Mischerkreispumpe", TypeSwitch, false},
	111: {"KM", "Status Ausgang A1", TypeEnable, false},
	112: {"KM", "Eingang E1", TypeTemperature, false},
	113: {"KM", "Eingang E2", TypeTemperature, false},
	114: {"MM1", "Stoerung", TypeSwitch, false},
	115: {"MM1", "Warmwassertemperatur", TypeTemperature, false},
	116: {"MM1", "Vorlauftemperatur Mischer", TypeTemperature, false},
	117: {"MM1", "Status Mischerkreispumpe", TypeSwitch, false},
	118: {"MM1", "Status Ausgang A1", TypeEnable, false},
	119: {"MM1", "Eingang E1", TypeTemperature, false},
	120: {"MM1", "Eingang E2", TypeTemperature, false},
	121: {"MM2", "Stoerung", TypeSwitch, false},
	122: {"MM2", "Warmwassertemperatur", TypeTemperature, false},
	123: {"MM2", "Vorlauftemperatur Mischer", TypeTemperature, false},
	124: {"MM2", "Status Mischerkreispumpe", TypeSwitch, false},
	125: {"MM2", "Status Ausgang A1", TypeEnable, false},
	126: {"MM2", "Eingang E1", TypeTemperature, false},
	127: {"MM2", "Eingang E2", TypeTemperature, false},
	128: {"MM3", "Stoerung", TypeSwitch, false},
	129: {"MM3", "Warmwassertemperatur", TypeTemperature, false},
	130: {"MM3", "Vorlauftemperatur Mischer", TypeTemperature, false},
	131: {"MM3", "Status Mischerkreispumpe", TypeSwitch, false},
	132: {"MM3", "Status Ausgang A1", TypeEnable, false},
	133: {"MM3", "Eingang E1", TypeTemperature, false},
	134: {"MM3", "Eingang E2", TypeTemperature, false},
	135: {"SM", "Stoerung", TypeSwitch, false},
	136: {"SM", "Warmwassertemperatur Solar 1", TypeTemperature, false},
	137: {"SM", "Temperatur Kollektor 1", TypeTemperature, false},
	138: {"SM", "Eingang E1", TypeTemperature, false},
	139: {"SM", "Eingang E2 (Durchfluss)", TypeVolumeFlow, false},
	140: {"SM", "Eingang E3", TypeTemperature, false},
	141: {"SM", "Status Solarkreispumpe SKP1", TypeSwitch, false},
	142: {"SM", "Status Ausgang A1", TypeEnable, false},
	143: {"SM", "Status Ausgang A2", TypeEnable, false},
	144: {"SM", "Status Ausgang A3", TypeEnable, false},
	145: {"SM", "Status Ausgang A4", TypeEnable, false},
	146: {"SM", "Durchfluss", TypeVolumeFlow, false},
	147: {"SM", "aktuelle Leistung", TypePower, false},
	148: {"CWL", "Stoerung", TypeSwitch, false},
	149: {"CWL", "Programm", TypeDHWMode, true},
	150: {"CWL", "Zeitprogramm 1", TypeSwitch, true},
	151: {"CWL", "Zeitprogramm 2", TypeSwitch, true},
	152: {"CWL", "Zeitprogramm 3", TypeSwitch, true},
	153: {"CWL", "Intensivlueftung AN_AUS", TypeSwitch, true},
	154: {"CWL", "Intensivlueftung Startdatum", TypeDate, true},
	155: {"CWL", "Intensivlueftung Enddatum", TypeDate, true},
	156: {"CWL", "Intensivlueftung Startzeit", TypeTimeOfDay, true},
	157: {"CWL", "Intensivlueftung Endzeit", TypeTimeOfDay, true},
	158: {"CWL", "Zeitw. Feuchteschutz AN_AUS", TypeSwitch, true},
	159: {"CWL", "Zeitw. Feuchteschutz Startdatum", TypeDate, true},
	160: {"CWL", "Zeitw. Feuchteschutz Enddatum", TypeDate, true},
	161: {"CWL", "Zeitw. Feuchteschutz Startzeit", TypeTimeOfDay, true},
	162: {"CWL", "Zeitw. Feuchteschutz Endzeit", TypeTimeOfDay, true},
	163: {"CWL", "Lueftungsstufe", TypeScaledPercent, false},
	164: {"CWL", "Ablufttemperatur", TypeTemperature, false},
	165: {"CWL", "Frischlufttemperatur", TypeTemperature, false},
	166: {"CWL", "Durchsatz Zuluft", TypeFlowRateM3h, false},
	167: {"CWL", "Durchsatz Abluft", TypeFlowRateM3h, false},
	168: {"CWL", "Bypass Initialisierung", TypeBool, false},
	169: {"CWL", "Bypass oeffnet_offen", TypeBool, false},
	170: {"CWL", "Bypass schliesst_geschlossen", TypeBool, false},
	171: {"CWL", "Bypass Fehler", TypeBool, false},
	172: {"CWL", "Frost Status: Init_Warte", TypeBool, false},
	173: {"CWL", "Frost Status: Kein Frost", TypeBool, false},
	174: {"CWL", "Frost Status: Vorwaermer", TypeBool, false},
	175: {"CWL", "Frost Status: Fehler", TypeBool, false},
	176: {"BWL", "Stoerung", TypeSwitch, false},
	177: {"BWL", "Betriebsart", TypeHVACControlMode, false},
	178: {"BWL", "Heizleistung", TypePower, false},
	179: {"BWL", "Kuehlleistung", TypePower, false},
	180: {"BWL", "Kesseltemperatur", TypeTemperature, false},
	181: {"BWL", "Sammlertemperatur", TypeTemperature, false},
	182: {"BWL", "Ruecklauftemperatur", TypeTemperature, false},
	183: {"BWL", "Warmwassertemperatur", TypeTemperature, false},
	184: {"BWL", "Aussentemperatur", TypeTemperature, false},
	185: {"BWL", "Status Heizkreispumpe", TypeSwitch, false},
	186: {"BWL", "Status Aux-Pumpe", TypeSwitch, false},
	187: {"BWL", "3W-Umschaltventil HZ_WW", TypeOpenClose, false},
	188: {"BWL", "3W-Umschaltventil HZ_K", TypeOpenClose, false},
	189: {"BWL", "Status E-Heizung", TypeSwitch, false},
	190: {"BWL", "Anlagendruck", TypePressure, false},
	191: {"BWL", "Leistungsaufnahme", TypePower, false},
	192: {"CWL", "Filterwarnung aktiv", TypeSwitch, false},
	193: {"CWL", "Filterwarnung zuruecksetzen", TypeSwitch, true},
	194: {"SYM", "1x Warmwasserladung (gobal)", TypeSwitch, true},
	195: {"SM", "Tagesertrag", TypeActiveEnergy, false},
	196: {"SM", "Gesamtertrag", TypeActiveEnergyKWh, false},
	197: {"HG1", "Abgastemperatur", TypeTemperature, false},
	198: {"HG1", "Leistungsvorgabe", TypeScaledPercent, true},
	199: {"HG1", "Kesseltemperaturvorgabe", TypeTemperature, true},
	200: {"HG2", "Abgastemperatur", TypeTemperature, false},
	201: {"HG2", "Leistungsvorgabe", TypeScaledPercent, true},
	202: {"HG2", "Kesseltemperaturvorgabe", TypeTemperature, true},
	203: {"HG3", "Abgastemperatur", TypeTemperature, false},
	204: {"HG3", "Leistungsvorgabe", TypeScaledPercent, true},
	205: {"HG3", "Kesseltemperaturvorgabe", TypeTemperature, true},
	206: {"HG4", "Abgastemperatur", TypeTemperature, false},
	207: {"HG4", "Leistungsvorgabe", TypeScaledPercent, true},
	208: {"HG4", "Kesseltemperaturvorgabe", TypeTemperature, true},
	209: {"KM", "Gesamtmodulationsgradvorgabe", TypeScaledPercent, true},
	210: {"KM", "Sammlertemperaturvorgabe", TypeTemperature, true},
	211: {"KM", "Betriebsart Heizen/Kuehlen", TypeSwitch, false},
	251: {"BM2", "Erkennung Heiz-/ Mischerkreise", TypeUnsignedCount8, false},
	346: {"CWL", "undokumentiert_346", TypeUnknown, false},
	349: {"CWL", "undokumentiert_349", TypeUnknown, false},
	350: {"CWL", "undokumentiert_351", TypeUnknown, false},
	351: {"CWL", "undokumentiert_351", TypeUnknown, false},
	352: {"CWL", "undokumentiert_352", TypeUnknown, false},
	353: {"CWL", "undokumentiert_353", TypeUnknown, false},
	354: {"CWL", "undokumentiert_354", TypeUnknown, false},
	355: {"BM2", "Erkennung verfuegbarer Geraete 1", TypeUnsignedCount16, false},
	356: {"BM2", "Erkennung verfuegbarer Geraete 2", TypeUnsignedCount16, false},
	357: {"BM2", "Unterscheidung Heizgeraetetyp (HG1)", TypeUnsignedCount8, false},
	358: {"BM2", "Erkennung Warmwasserkreise", TypeUnsignedCount8, false},
	359: {"BM2", "Unterscheidung Heizgeraetetyp (HG2)", TypeUnsignedCount8, false},
	360: {"BM2", "Unterscheidung Heizgeraetetyp (HG3)", TypeUnsignedCount8, false},
	361: {"BM2", "Unterscheidung Heizgeraetetyp (HG4)", TypeUnsignedCount8, false},
	364: {"HG1", "Kesselsolltemperatur HG1 - lesen", TypeTemperature, false},
	365: {"HG1", "Kesselsolltemperatur HG2 - lesen", TypeTemperature, false},
	366: {"HG1", "Kesselsolltemperatur HG3 - lesen", TypeTemperature, false},
	367: {"HG1", "Kesselsolltemperatur HG4 - lesen", TypeTemperature, false},
	368: {"BM2", "Vorlaufsolltemperatur dir. HK - lesen", TypeTemperature, false},
	369: {"BM2", "Mischersolltemperatur MK1 - lesen", TypeTemperature, false},
	370: {"BM2", "Mischersolltemperatur MK2 - lesen", TypeTemperature, false},
	371: {"BM2", "Mischersolltemperatur MK3 - lesen", TypeTemperature, false},
	372: {"SYM", "Zuletzt aktiver Stoercode", TypeUnsignedCount8, false},
}
