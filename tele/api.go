// Package tele publishes balancer readings over MQTT. Full reports go
// through a persistent on-disk queue and are delivered at least once;
// per-value scalar topics are best-effort for dashboards that want plain
// numbers without JSON.
package tele

import (
	"context"
	"math"
	"time"

	"github.com/hrpv/neeytele/heltec"
	"github.com/hrpv/neeytele/log2"
)

// Teler contract:
// - Init() fails only with invalid config, network issues ignored
// - Report() blocks at most for disk write, delivery happens in background
// - Close() flushes the transport, queued reports survive on disk
type Teler interface {
	Init(ctx context.Context, log *log2.Log, conf Config) error
	Report(r *Report) error
	Close()
}

type Report struct {
	Timestamp string        `json:"timestamp"`
	Device    DeviceReport  `json:"device"`
	Battery   BatteryReport `json:"battery"`
	Cells     []CellReport  `json:"cells"`
}

type DeviceReport struct {
	Model     string `json:"model"`
	HWVersion string `json:"hw_version"`
	SWVersion string `json:"sw_version"`
}

type BatteryReport struct {
	TotalVoltage       float64 `json:"total_voltage"`
	AverageCellVoltage float64 `json:"average_cell_voltage"`
	MinCellVoltage     float64 `json:"min_cell_voltage"`
	MaxCellVoltage     float64 `json:"max_cell_voltage"`
	DeltaVoltage       float64 `json:"delta_voltage"`
	CellCount          int     `json:"cell_count"`
	Temperature1       float64 `json:"temperature_1"`
	Temperature2       float64 `json:"temperature_2"`
	Balancing          bool    `json:"balancing"`
	Status             string  `json:"status"`
}

type CellReport struct {
	Cell       int     `json:"cell"`
	Voltage    float64 `json:"voltage"`
	Resistance float64 `json:"resistance"`
}

// NewReport flattens one poll cycle into the wire shape. di may be nil
// when identity was not read yet. Aggregate NaNs (no active cells) become
// zeros, JSON has no NaN.
func NewReport(di *heltec.DeviceInfo, ci *heltec.CellInfo) *Report {
	r := &Report{
		Timestamp: time.Now().Format(time.RFC3339),
		Device:    DeviceReport{Model: "Unknown"},
		Battery: BatteryReport{
			TotalVoltage:       round3(float64(ci.TotalVoltage)),
			AverageCellVoltage: round3(nanZero(float64(ci.AverageVoltage))),
			MinCellVoltage:     round3(nanZero(float64(ci.MinVoltage))),
			MaxCellVoltage:     round3(nanZero(float64(ci.MaxVoltage))),
			DeltaVoltage:       round3(nanZero(float64(ci.DeltaVoltage))),
			CellCount:          ci.ActiveCells,
			Temperature1:       round1(float64(ci.Temperature1)),
			Temperature2:       round1(float64(ci.Temperature2)),
			Balancing:          ci.Balancing,
			Status:             ci.OperationStatus.String(),
		},
		Cells: make([]CellReport, 0, ci.ActiveCells),
	}
	if di != nil {
		r.Device = DeviceReport{
			Model:     di.Model,
			HWVersion: di.HardwareVersion,
			SWVersion: di.SoftwareVersion,
		}
	}
	for i, c := range ci.Cells {
		if !c.Active() {
			continue
		}
		r.Cells = append(r.Cells, CellReport{
			Cell:       i + 1,
			Voltage:    round3(float64(c.Voltage)),
			Resistance: round3(float64(c.Resistance)),
		})
	}
	return r
}

func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
