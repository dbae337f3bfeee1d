package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgeo/drivers/ism8/ism8"
)

var (
	dpDevice   string
	dpWritable bool
	dpType     string
)

var datapointsCmd = &cobra.Command{
	Use:     "datapoints",
	Aliases: []string{"dp", "list"},
	Short:   "List the datapoint catalogue",
	Long: `Datapoints prints the ISM8 datapoint catalogue.

Examples:
  # Every datapoint
  edgeo-ism8 datapoints

  # Writable datapoints of the first mixer circuit as YAML
  edgeo-ism8 datapoints --device MK1 --writable -o yaml

  # Every temperature datapoint
  edgeo-ism8 datapoints --type DPT_Value_Temp`,

	RunE: runDatapoints,
}

func init() {
	datapointsCmd.Flags().StringVarP(&dpDevice, "device", "d", "", "Only datapoints of this device code (e.g., HG1, MK2)")
	datapointsCmd.Flags().BoolVarP(&dpWritable, "writable", "w", false, "Only writable datapoints")
	datapointsCmd.Flags().StringVarP(&dpType, "type", "t", "", "Only datapoints of this value type (e.g., DPT_Switch)")
}

// datapointRecord is the exported form of a catalogue entry
type datapointRecord struct {
	ID         uint16   `json:"id" yaml:"id"`
	Device     string   `json:"device" yaml:"device"`
	DeviceName string   `json:"device_name" yaml:"device_name"`
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Unit       string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Writable   bool     `json:"writable" yaml:"writable"`
	Allowed    string   `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func runDatapoints(cmd *cobra.Command, args []string) error {
	catalog := ism8.DefaultCatalog()

	var typeFilter ism8.ValueType
	if dpType != "" {
		t, ok := ism8.ParseValueType(dpType)
		if !ok {
			return fmt.Errorf("unknown value type: %s", dpType)
		}
		typeFilter = t
	}

	var records []datapointRecord
	for _, dp := range catalog.Datapoints() {
		if dpDevice != "" && !strings.EqualFold(dp.Device, dpDevice) {
			continue
		}
		if dpWritable && !dp.Writable {
			continue
		}
		if dpType != "" && dp.Type != typeFilter {
			continue
		}
		records = append(records, newDatapointRecord(catalog, dp))
	}

	headers := []string{"ID", "Device", "Name", "Type", "Unit", "W", "Allowed"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		writable := ""
		if r.Writable {
			writable = "x"
		}
		allowed := r.Allowed
		if allowed == "" && len(r.Labels) > 0 {
			allowed = strings.Join(r.Labels, "|")
		}
		rows = append(rows, []string{
			strconv.Itoa(int(r.ID)), r.Device, r.Name, r.Type, r.Unit, writable, allowed,
		})
	}

	return newFormatter().PrintRecords(headers, rows, records)
}

func newDatapointRecord(catalog *ism8.StaticCatalog, dp ism8.Datapoint) datapointRecord {
	r := datapointRecord{
		ID:         uint16(dp.ID),
		Device:     dp.Device,
		DeviceName: catalog.DeviceName(dp.Device),
		Name:       dp.Name,
		Type:       dp.Type.String(),
		Unit:       dp.Type.Unit(),
		Writable:   dp.Writable,
		Labels:     ism8.EnumLabels(dp.Type),
	}
	if dom, ok := catalog.AllowedValues(dp.ID); ok {
		r.Allowed = dom.String()
	}
	return r
}
