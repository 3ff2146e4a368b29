package heltec

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReadCellInfo(t *testing.T) {
	t.Parallel()

	frame := BuildRead(CommandCellInfo)
	require.Len(t, frame, RequestSize)
	assert.Equal(t, "aa551101020014000000000000000000000027ff", hex.EncodeToString(frame))
	assert.Equal(t, Checksum(frame[:18]), frame[18])
	assert.Equal(t, EndOfFrame, frame[19])
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()

	a := BuildCommand(FunctionRead, CommandDeviceInfo, 0, 0)
	b := BuildCommand(FunctionRead, CommandDeviceInfo, 0, 0)
	assert.Equal(t, a, b)
}

func TestBuildWriteRegister(t *testing.T) {
	t.Parallel()

	frame := BuildCommand(FunctionWrite, CommandWriteRegister, 0x0a, 0x01020304)
	require.Len(t, frame, RequestSize)
	assert.Equal(t, byte(0xaa), frame[0])
	assert.Equal(t, byte(0x55), frame[1])
	assert.Equal(t, DeviceAddress, frame[2])
	assert.Equal(t, byte(FunctionWrite), frame[3])
	assert.Equal(t, byte(CommandWriteRegister), frame[4])
	assert.Equal(t, byte(0x0a), frame[5])
	// length fixed at 20 LE
	assert.Equal(t, byte(0x14), frame[6])
	assert.Equal(t, byte(0x00), frame[7])
	// value LE
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, frame[8:12])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, frame[12:18])
	assert.Equal(t, Checksum(frame[:18]), frame[18])
	assert.Equal(t, EndOfFrame, frame[19])
}
