package dht22

import (
	"errors"
	"fmt"
)

// FrameSize is the number of bytes the sensor transmits per reading:
// humidity high/low, temperature high/low, checksum.
const FrameSize = 5

// ErrChecksum is returned by DecodeFrame when the checksum byte does not match.
var ErrChecksum = errors.New("dht22: checksum mismatch")

// Checksum returns the 8-bit wraparound sum of the four payload bytes.
func Checksum(payload [4]byte) byte {
	return payload[0] + payload[1] + payload[2] + payload[3]
}

// DecodeFrame validates a received frame and decodes it.
// The top bit of the third byte is a sign flag, not two's complement.
func DecodeFrame(frame [FrameSize]byte) (Reading, error) {
	want := Checksum([4]byte{frame[0], frame[1], frame[2], frame[3]})
	if frame[4] != want {
		return Reading{}, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, frame[4], want)
	}

	temp := int16(frame[2]&0x7f)<<8 | int16(frame[3])
	if frame[2]&0x80 != 0 {
		temp = -temp
	}
	return Reading{
		Humidity:    uint16(frame[0])<<8 | uint16(frame[1]),
		Temperature: temp,
	}, nil
}
