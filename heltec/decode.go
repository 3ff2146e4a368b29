package heltec

import (
	"math"

	"github.com/juju/errors"
)

// Record is one decoded response frame. Concrete types: *DeviceInfo,
// *CellInfo, *Settings, *FactoryDefaults, *WriteAck, *Unrecognized.
type Record interface {
	Kind() Command
}

type DeviceInfo struct {
	Model           string
	HardwareVersion string
	SoftwareVersion string
	ProtocolVersion string
	ManufactureDate string
	PowerOnCount    uint16
	TotalRuntime    uint32 // seconds
}

func (*DeviceInfo) Kind() Command { return CommandDeviceInfo }

func (self *DeviceInfo) TotalRuntimeString() string { return FormatRuntime(self.TotalRuntime) }

type OperationStatus byte

const StatusBalancing OperationStatus = 0x05

var operationStatusNames = []string{
	"Unknown",
	"Wrong cell count",
	"AcqLine Res test",
	"AcqLine Res exceed",
	"Systest Completed",
	"Balancing",
	"Balancing finished",
	"Low voltage",
	"System Overtemp",
	"Host fails",
	"Low battery voltage - balancing stopped",
	"Temperature too high - balancing stopped",
	"Self-test completed",
}

func (s OperationStatus) String() string {
	if int(s) < len(operationStatusNames) {
		return operationStatusNames[s]
	}
	return operationStatusNames[0]
}

type Cell struct {
	Voltage    float32
	Resistance float32
}

// Active reports whether the slot is populated. Zero or negative voltage
// means no cell is connected, not a real zero-volt reading.
func (c Cell) Active() bool { return c.Voltage > 0 }

type CellInfo struct {
	FrameCounter uint8
	Cells        [CellCount]Cell

	// Aggregates over active cells only. Voltages are NaN and indices are 0
	// when no cell is active.
	ActiveCells    int
	MinVoltage     float32
	MaxVoltage     float32
	MinVoltageCell int // 1-based
	MaxVoltageCell int // 1-based
	DeltaVoltage   float32
	AverageVoltage float32

	TotalVoltage     float32
	OperationStatus  OperationStatus
	Balancing        bool
	BalancingCurrent float32
	Temperature1     float32
	Temperature2     float32

	// 24-bit per-cell bitmasks
	CellDetectionFailed         uint32
	CellOvervoltage             uint32
	CellUndervoltage            uint32
	CellPolarityError           uint32
	CellExcessiveLineResistance uint32
	ErrorSystemOverheating      bool
	ErrorCharging               bool
	ErrorDischarging            bool

	Uptime uint32 // seconds
}

func (*CellInfo) Kind() Command { return CommandCellInfo }

func (self *CellInfo) UptimeString() string { return FormatRuntime(self.Uptime) }

type BuzzerMode byte

var buzzerModeNames = []string{"Unknown", "Off", "Beep once", "Beep regular"}

func (m BuzzerMode) String() string {
	if int(m) < len(buzzerModeNames) {
		return buzzerModeNames[m]
	}
	return buzzerModeNames[0]
}

type BatteryType byte

var batteryTypeNames = []string{"Unknown", "NCM", "LFP", "LTO", "PbAc"}

func (t BatteryType) String() string {
	if int(t) < len(batteryTypeNames) {
		return batteryTypeNames[t]
	}
	return batteryTypeNames[0]
}

type Settings struct {
	CellCount             uint8
	BalanceTriggerVoltage float32
	MaxBalanceCurrent     float32
	BalanceSleepVoltage   float32
	BalancerEnabled       bool
	BuzzerMode            BuzzerMode
	BatteryType           BatteryType
	NominalCapacity       uint32
	BalanceStartVoltage   float32
}

func (*Settings) Kind() Command { return CommandSettings }

type FactoryDefaults struct {
	// Ack is set for the bare 20-byte acknowledgement frame; all other
	// fields are zero then.
	Ack bool

	StandardVoltage1 float32
	StandardVoltage2 float32
	BatteryVoltage1  float32
	BatteryVoltage2  float32
	StandardCurrent1 float32
	StandardCurrent2 float32
	SuperBat1        float32
	SuperBat2        float32
	Resistor1        float32
	BatteryStatus    float32
	MaxVoltage       float32
	MinVoltage       float32
	MaxTemperature   float32
	MinTemperature   float32
	PowerOnCounter   uint32
	TotalRuntime     uint32
	ProductionDate   string
}

func (*FactoryDefaults) Kind() Command { return CommandFactoryDefaults }

// WriteAck acknowledges a register write, no payload.
type WriteAck struct{}

func (*WriteAck) Kind() Command { return CommandWriteRegister }

// Unrecognized marks a frame with a type byte outside the known set.
// Dropped by callers, never fatal: future firmware may add types.
type Unrecognized struct {
	Type byte
}

func (self *Unrecognized) Kind() Command { return Command(self.Type) }

// Decode dispatches a complete checksum-valid frame on its command type
// byte. Errors mean the frame is shorter than the record's fixed layout.
func Decode(frame []byte) (Record, error) {
	if len(frame) < MinFrameSize {
		return nil, errors.NotValidf("heltec frame len=%d < min=%d", len(frame), MinFrameSize)
	}
	switch cmd := Command(frame[4]); cmd {
	case CommandDeviceInfo:
		return decodeDeviceInfo(frame)
	case CommandCellInfo:
		return decodeCellInfo(frame)
	case CommandFactoryDefaults:
		return decodeFactoryDefaults(frame)
	case CommandSettings:
		return decodeSettings(frame)
	case CommandWriteRegister:
		return &WriteAck{}, nil
	default:
		return &Unrecognized{Type: byte(cmd)}, nil
	}
}

func decodeDeviceInfo(frame []byte) (*DeviceInfo, error) {
	if len(frame) < 66 {
		return nil, errors.NotValidf("device info frame len=%d", len(frame))
	}
	r := &DeviceInfo{
		Model:           getString(frame, 8, 24),
		HardwareVersion: getString(frame, 24, 32),
		SoftwareVersion: getString(frame, 32, 40),
		ProtocolVersion: getString(frame, 40, 48),
		ManufactureDate: getString(frame, 48, 56),
		PowerOnCount:    getUint16(frame, 56),
		TotalRuntime:    getUint32(frame, 60),
	}
	return r, nil
}

func decodeCellInfo(frame []byte) (*CellInfo, error) {
	if len(frame) < 260 {
		return nil, errors.NotValidf("cell info frame len=%d", len(frame))
	}
	r := &CellInfo{FrameCounter: frame[8]}

	nan := float32(math.NaN())
	minV, maxV := nan, nan
	var total float32

	for i := 0; i < CellCount; i++ {
		c := Cell{
			Voltage:    getFloat32(frame, 9+i*4),
			Resistance: getFloat32(frame, 105+i*4),
		}
		r.Cells[i] = c
		if !c.Active() {
			continue
		}
		r.ActiveCells++
		total += c.Voltage
		if r.MinVoltageCell == 0 || c.Voltage < minV {
			minV = c.Voltage
			r.MinVoltageCell = i + 1
		}
		if r.MaxVoltageCell == 0 || c.Voltage > maxV {
			maxV = c.Voltage
			r.MaxVoltageCell = i + 1
		}
	}
	r.MinVoltage, r.MaxVoltage = minV, maxV
	if r.ActiveCells > 0 {
		r.DeltaVoltage = maxV - minV
		r.AverageVoltage = total / float32(r.ActiveCells)
	} else {
		r.DeltaVoltage, r.AverageVoltage = nan, nan
	}

	r.TotalVoltage = getFloat32(frame, 201)
	r.OperationStatus = OperationStatus(frame[216])
	r.Balancing = r.OperationStatus == StatusBalancing
	r.BalancingCurrent = getFloat32(frame, 217)
	r.Temperature1 = getFloat32(frame, 221)
	r.Temperature2 = getFloat32(frame, 225)

	r.CellDetectionFailed = getUint24(frame, 229)
	r.CellOvervoltage = getUint24(frame, 232)
	r.CellUndervoltage = getUint24(frame, 235)
	r.CellPolarityError = getUint24(frame, 238)
	r.CellExcessiveLineResistance = getUint24(frame, 241)
	r.ErrorSystemOverheating = frame[244] != 0
	r.ErrorCharging = frame[245] != 0
	r.ErrorDischarging = frame[246] != 0

	r.Uptime = getUint32(frame, 254)
	return r, nil
}

func decodeSettings(frame []byte) (*Settings, error) {
	if len(frame) < 34 {
		return nil, errors.NotValidf("settings frame len=%d", len(frame))
	}
	r := &Settings{
		CellCount:             frame[8],
		BalanceTriggerVoltage: getFloat32(frame, 9),
		MaxBalanceCurrent:     getFloat32(frame, 13),
		BalanceSleepVoltage:   getFloat32(frame, 17),
		BalancerEnabled:       frame[21] != 0,
		BuzzerMode:            BuzzerMode(frame[22]),
		BatteryType:           BatteryType(frame[23]),
		NominalCapacity:       getUint32(frame, 24),
		BalanceStartVoltage:   getFloat32(frame, 28),
	}
	return r, nil
}

func decodeFactoryDefaults(frame []byte) (*FactoryDefaults, error) {
	if len(frame) == MinFrameSize {
		return &FactoryDefaults{Ack: true}, nil
	}
	if len(frame) < 82 {
		return nil, errors.NotValidf("factory defaults frame len=%d", len(frame))
	}
	r := &FactoryDefaults{
		StandardVoltage1: getFloat32(frame, 8),
		StandardVoltage2: getFloat32(frame, 12),
		BatteryVoltage1:  getFloat32(frame, 16),
		BatteryVoltage2:  getFloat32(frame, 20),
		StandardCurrent1: getFloat32(frame, 24),
		StandardCurrent2: getFloat32(frame, 28),
		SuperBat1:        getFloat32(frame, 32),
		SuperBat2:        getFloat32(frame, 36),
		Resistor1:        getFloat32(frame, 40),
		BatteryStatus:    getFloat32(frame, 44),
		MaxVoltage:       getFloat32(frame, 48),
		MinVoltage:       getFloat32(frame, 52),
		MaxTemperature:   getFloat32(frame, 56),
		MinTemperature:   getFloat32(frame, 60),
		PowerOnCounter:   getUint32(frame, 64),
		TotalRuntime:     getUint32(frame, 68),
		ProductionDate:   getString(frame, 72, 80),
	}
	return r, nil
}
