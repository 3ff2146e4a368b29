package heltec

// RequestSize is the fixed length of every request frame.
const RequestSize = 20

// BuildCommand encodes a request frame. Deterministic: same inputs always
// produce the same 20 bytes.
//
// offset 0-1  SOF AA 55
// offset 2    device address 11
// offset 3    function
// offset 4    command
// offset 5    register address
// offset 6-7  length, fixed 0x0014 LE
// offset 8-11 value LE
// offset 12-17 reserved zero
// offset 18   checksum over 0..17
// offset 19   EOF FF
func BuildCommand(fn Function, cmd Command, register byte, value uint32) []byte {
	frame := make([]byte, RequestSize)
	frame[0] = SOFRequest1
	frame[1] = SOFRequest2
	frame[2] = DeviceAddress
	frame[3] = byte(fn)
	frame[4] = byte(cmd)
	frame[5] = register
	frame[6] = RequestSize & 0xFF
	frame[7] = RequestSize >> 8
	frame[8] = byte(value)
	frame[9] = byte(value >> 8)
	frame[10] = byte(value >> 16)
	frame[11] = byte(value >> 24)
	frame[18] = Checksum(frame[:18])
	frame[19] = EndOfFrame
	return frame
}

// BuildRead is shorthand for the common read requests with zero register
// and value.
func BuildRead(cmd Command) []byte { return BuildCommand(FunctionRead, cmd, 0, 0) }
