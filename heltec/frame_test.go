package heltec

import (
	"encoding/binary"
	"math"
)

// respFrame builds a well-formed response frame for tests: header, zeroed
// payload mutated by fill, checksum, terminator.
func respFrame(cmd Command, size int, fill func([]byte)) []byte {
	f := make([]byte, size)
	f[0] = SOFResponse1
	f[1] = SOFResponse2
	f[2] = DeviceAddress
	f[3] = byte(FunctionRead)
	f[4] = byte(cmd)
	binary.LittleEndian.PutUint16(f[6:], uint16(size))
	if fill != nil {
		fill(f)
	}
	f[size-2] = Checksum(f[:size-2])
	f[size-1] = EndOfFrame
	return f
}

func putF32(b []byte, i int, v float32) {
	binary.LittleEndian.PutUint32(b[i:], math.Float32bits(v))
}

func putU16(b []byte, i int, v uint16) { binary.LittleEndian.PutUint16(b[i:], v) }
func putU32(b []byte, i int, v uint32) { binary.LittleEndian.PutUint32(b[i:], v) }
