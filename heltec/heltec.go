// Package heltec implements the Heltec/NEEY battery balancer BLE protocol:
// frame assembly from notification chunks, checksum validation, response
// decoding and request encoding.
//
// Wire frame: sof1 sof2 address function command register len16le payload...
// checksum eof. Checksum is a plain additive byte sum mod 256, not a CRC,
// despite what vendor docs call it.
package heltec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	SOFRequest1  byte = 0xAA
	SOFRequest2  byte = 0x55
	SOFResponse1 byte = 0x55
	SOFResponse2 byte = 0xAA

	DeviceAddress byte = 0x11
	EndOfFrame    byte = 0xFF

	MinFrameSize = 20
	MaxFrameSize = 300

	CellCount = 24
)

type Function byte

const (
	FunctionWrite Function = 0x00
	FunctionRead  Function = 0x01
)

type Command byte

const (
	CommandNone            Command = 0x00
	CommandDeviceInfo      Command = 0x01
	CommandCellInfo        Command = 0x02
	CommandFactoryDefaults Command = 0x03
	CommandSettings        Command = 0x04
	CommandWriteRegister   Command = 0x05
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandDeviceInfo:
		return "device-info"
	case CommandCellInfo:
		return "cell-info"
	case CommandFactoryDefaults:
		return "factory-defaults"
	case CommandSettings:
		return "settings"
	case CommandWriteRegister:
		return "write-register"
	}
	return fmt.Sprintf("unknown(%02x)", byte(c))
}

func Checksum(b []byte) byte {
	var chk byte
	for _, x := range b {
		chk += x
	}
	return chk
}

func getUint16(b []byte, i int) uint16 { return binary.LittleEndian.Uint16(b[i:]) }
func getUint32(b []byte, i int) uint32 { return binary.LittleEndian.Uint32(b[i:]) }

// 24-bit little-endian, three consecutive bytes, no sign extension.
func getUint24(b []byte, i int) uint32 {
	return uint32(b[i]) | uint32(b[i+1])<<8 | uint32(b[i+2])<<16
}

// IEEE-754 single reinterpreted from LE bit pattern, never parsed from text.
func getFloat32(b []byte, i int) float32 {
	return math.Float32frombits(getUint32(b, i))
}

// Fixed-width ASCII field: trailing nulls trimmed, invalid bytes replaced.
func getString(b []byte, begin, end int) string {
	s := strings.TrimRight(string(b[begin:end]), "\x00")
	return strings.ToValidUTF8(s, "�")
}

// FormatRuntime renders seconds as "1y 2d 3h". Sub-hour remainder is
// dropped, zero input is "0h".
func FormatRuntime(seconds uint32) string {
	const hour = 3600
	const day = 24 * hour
	const year = 365 * day

	years := seconds / year
	seconds %= year
	days := seconds / day
	seconds %= day
	hours := seconds / hour

	parts := make([]string, 0, 3)
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%dy", years))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if len(parts) == 0 {
		return "0h"
	}
	return strings.Join(parts, " ")
}
