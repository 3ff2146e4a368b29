package heltec

import (
	"github.com/hrpv/neeytele/log2"
)

// Assembler reassembles response frames from BLE notification chunks.
// The transport delivers chunks in order with no gaps; at most one frame is
// in flight because the device answers one request per connection.
type Assembler struct {
	buf []byte
	log *log2.Log
}

func NewAssembler(log *log2.Log) *Assembler {
	return &Assembler{
		buf: make([]byte, 0, MaxFrameSize),
		log: log,
	}
}

// Feed appends one notification chunk and returns a complete checksum-valid
// frame, or nil while the frame is still incomplete or was dropped.
// A chunk starting with the response SOF always begins a new frame,
// discarding any stale partial one.
func (self *Assembler) Feed(chunk []byte) []byte {
	if len(self.buf) > MaxFrameSize {
		self.log.Errorf("heltec frame dropped: buffer overflow len=%d", len(self.buf))
		self.reset()
	}

	if len(chunk) >= 2 && chunk[0] == SOFResponse1 && chunk[1] == SOFResponse2 {
		self.reset()
	}

	self.buf = append(self.buf, chunk...)

	if len(self.buf) < MinFrameSize || self.buf[len(self.buf)-1] != EndOfFrame {
		return nil
	}

	size := len(self.buf)
	computed := Checksum(self.buf[:size-2])
	remote := self.buf[size-2]
	if computed != remote {
		self.log.Errorf("heltec checksum mismatch computed=%02x remote=%02x len=%d", computed, remote, size)
		self.reset()
		return nil
	}

	frame := make([]byte, size)
	copy(frame, self.buf)
	self.reset()
	return frame
}

func (self *Assembler) reset() { self.buf = self.buf[:0] }
