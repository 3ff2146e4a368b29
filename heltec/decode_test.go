package heltec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeviceInfo(t *testing.T) {
	t.Parallel()

	frame := respFrame(CommandDeviceInfo, 100, func(b []byte) {
		copy(b[8:24], "GW-24S")
		copy(b[24:32], "HW-2.8.0")
		copy(b[32:40], "ZH-1.2.3")
		copy(b[40:48], "1.0.0")
		copy(b[48:56], "20220916")
		putU16(b, 56, 42)
		putU32(b, 60, 90061) // 1d 1h and change
	})
	rec, err := Decode(frame)
	require.NoError(t, err)
	di, ok := rec.(*DeviceInfo)
	require.True(t, ok, "rec=%#v", rec)
	assert.Equal(t, "GW-24S", di.Model)
	assert.Equal(t, "HW-2.8.0", di.HardwareVersion)
	assert.Equal(t, "ZH-1.2.3", di.SoftwareVersion)
	assert.Equal(t, "1.0.0", di.ProtocolVersion)
	assert.Equal(t, "20220916", di.ManufactureDate)
	assert.Equal(t, uint16(42), di.PowerOnCount)
	assert.Equal(t, uint32(90061), di.TotalRuntime)
	assert.Equal(t, "1d 1h", di.TotalRuntimeString())
}

func TestDecodeCellInfoNoActiveCells(t *testing.T) {
	t.Parallel()

	frame := respFrame(CommandCellInfo, 300, nil)
	rec, err := Decode(frame)
	require.NoError(t, err)
	ci := rec.(*CellInfo)

	assert.Equal(t, 0, ci.ActiveCells)
	assert.True(t, math.IsNaN(float64(ci.MinVoltage)), "MinVoltage=%v", ci.MinVoltage)
	assert.True(t, math.IsNaN(float64(ci.MaxVoltage)), "MaxVoltage=%v", ci.MaxVoltage)
	assert.True(t, math.IsNaN(float64(ci.AverageVoltage)), "AverageVoltage=%v", ci.AverageVoltage)
	assert.True(t, math.IsNaN(float64(ci.DeltaVoltage)), "DeltaVoltage=%v", ci.DeltaVoltage)
	assert.Equal(t, 0, ci.MinVoltageCell)
	assert.Equal(t, 0, ci.MaxVoltageCell)
}

func TestDecodeCellInfoSingleCell(t *testing.T) {
	t.Parallel()

	frame := respFrame(CommandCellInfo, 300, func(b []byte) {
		putF32(b, 9+4*4, 3.3) // cell 5
		putF32(b, 105+4*4, 0.21)
	})
	rec, err := Decode(frame)
	require.NoError(t, err)
	ci := rec.(*CellInfo)

	assert.Equal(t, 1, ci.ActiveCells)
	assert.InDelta(t, 3.3, ci.MinVoltage, 1e-6)
	assert.InDelta(t, 3.3, ci.MaxVoltage, 1e-6)
	assert.InDelta(t, 3.3, ci.AverageVoltage, 1e-6)
	assert.Equal(t, float32(0), ci.DeltaVoltage)
	assert.Equal(t, 5, ci.MinVoltageCell)
	assert.Equal(t, 5, ci.MaxVoltageCell)
	assert.InDelta(t, 0.21, ci.Cells[4].Resistance, 1e-6)
}

func TestDecodeCellInfoFull(t *testing.T) {
	t.Parallel()

	voltages := []float32{3.31, 3.29, 3.35, 3.30}
	frame := respFrame(CommandCellInfo, 300, func(b []byte) {
		for i, v := range voltages {
			putF32(b, 9+i*4, v)
			putF32(b, 105+i*4, 0.2)
		}
		putF32(b, 201, 13.25)
		b[216] = byte(StatusBalancing)
		putF32(b, 217, 1.5)
		putF32(b, 221, 24.5)
		putF32(b, 225, 25.0)
		b[229], b[230], b[231] = 0x01, 0x02, 0x03 // detection failed = 0x030201
		b[244] = 1
		b[246] = 1
		putU32(b, 254, 7200)
	})
	rec, err := Decode(frame)
	require.NoError(t, err)
	ci := rec.(*CellInfo)

	assert.Equal(t, 4, ci.ActiveCells)
	assert.Equal(t, 2, ci.MinVoltageCell)
	assert.Equal(t, 3, ci.MaxVoltageCell)
	assert.InDelta(t, 3.29, ci.MinVoltage, 1e-6)
	assert.InDelta(t, 3.35, ci.MaxVoltage, 1e-6)
	assert.InDelta(t, 0.06, ci.DeltaVoltage, 1e-6)
	assert.InDelta(t, (3.31+3.29+3.35+3.30)/4, ci.AverageVoltage, 1e-6)
	assert.InDelta(t, 13.25, ci.TotalVoltage, 1e-6)

	assert.True(t, ci.Balancing)
	assert.Equal(t, "Balancing", ci.OperationStatus.String())
	assert.InDelta(t, 1.5, ci.BalancingCurrent, 1e-6)
	assert.InDelta(t, 24.5, ci.Temperature1, 1e-6)
	assert.InDelta(t, 25.0, ci.Temperature2, 1e-6)

	assert.Equal(t, uint32(0x030201), ci.CellDetectionFailed)
	assert.Equal(t, uint32(0), ci.CellOvervoltage)
	assert.True(t, ci.ErrorSystemOverheating)
	assert.False(t, ci.ErrorCharging)
	assert.True(t, ci.ErrorDischarging)

	assert.Equal(t, uint32(7200), ci.Uptime)
	assert.Equal(t, "2h", ci.UptimeString())
}

func TestDecodeCellInfoUnknownStatus(t *testing.T) {
	t.Parallel()

	frame := respFrame(CommandCellInfo, 300, func(b []byte) {
		b[216] = 0xEE
	})
	rec, err := Decode(frame)
	require.NoError(t, err)
	ci := rec.(*CellInfo)
	assert.Equal(t, "Unknown", ci.OperationStatus.String())
	assert.False(t, ci.Balancing)
}

func TestDecodeSettings(t *testing.T) {
	t.Parallel()

	frame := respFrame(CommandSettings, 100, func(b []byte) {
		b[8] = 16
		putF32(b, 9, 0.005)
		putF32(b, 13, 4.0)
		putF32(b, 17, 3.0)
		b[21] = 1
		b[22] = 2 // Beep once
		b[23] = 2 // LFP
		putU32(b, 24, 280)
		putF32(b, 28, 3.2)
	})
	rec, err := Decode(frame)
	require.NoError(t, err)
	s := rec.(*Settings)
	assert.Equal(t, uint8(16), s.CellCount)
	assert.InDelta(t, 0.005, s.BalanceTriggerVoltage, 1e-6)
	assert.InDelta(t, 4.0, s.MaxBalanceCurrent, 1e-6)
	assert.InDelta(t, 3.0, s.BalanceSleepVoltage, 1e-6)
	assert.True(t, s.BalancerEnabled)
	assert.Equal(t, "Beep once", s.BuzzerMode.String())
	assert.Equal(t, "LFP", s.BatteryType.String())
	assert.Equal(t, uint32(280), s.NominalCapacity)
	assert.InDelta(t, 3.2, s.BalanceStartVoltage, 1e-6)
}

func TestDecodeFactoryDefaults(t *testing.T) {
	t.Parallel()

	t.Run("ack", func(t *testing.T) {
		frame := respFrame(CommandFactoryDefaults, MinFrameSize, nil)
		rec, err := Decode(frame)
		require.NoError(t, err)
		fd := rec.(*FactoryDefaults)
		assert.True(t, fd.Ack)
	})

	t.Run("full", func(t *testing.T) {
		frame := respFrame(CommandFactoryDefaults, 100, func(b []byte) {
			putF32(b, 8, 1.0)
			putF32(b, 60, -10.0)
			putU32(b, 64, 17)
			putU32(b, 68, 3600)
			copy(b[72:80], "20220916")
		})
		rec, err := Decode(frame)
		require.NoError(t, err)
		fd := rec.(*FactoryDefaults)
		assert.False(t, fd.Ack)
		assert.InDelta(t, 1.0, fd.StandardVoltage1, 1e-6)
		assert.InDelta(t, -10.0, fd.MinTemperature, 1e-6)
		assert.Equal(t, uint32(17), fd.PowerOnCounter)
		assert.Equal(t, uint32(3600), fd.TotalRuntime)
		assert.Equal(t, "20220916", fd.ProductionDate)
	})
}

func TestDecodeWriteAck(t *testing.T) {
	t.Parallel()

	rec, err := Decode(respFrame(CommandWriteRegister, MinFrameSize, nil))
	require.NoError(t, err)
	_, ok := rec.(*WriteAck)
	assert.True(t, ok, "rec=%#v", rec)
}

func TestDecodeUnrecognized(t *testing.T) {
	t.Parallel()

	rec, err := Decode(respFrame(Command(0x77), MinFrameSize, nil))
	require.NoError(t, err)
	u, ok := rec.(*Unrecognized)
	require.True(t, ok, "rec=%#v", rec)
	assert.Equal(t, byte(0x77), u.Type)
}

func TestDecodeTruncated(t *testing.T) {
	t.Parallel()

	_, err := Decode(respFrame(CommandCellInfo, 100, nil))
	assert.Error(t, err)
}
