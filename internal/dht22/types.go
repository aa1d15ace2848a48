package dht22

import (
	"fmt"
	"strings"
)

// Status is the phase of the decode state machine.
// The zero value is Invalid, the idle state of a sensor that has never been read.
type Status uint32

const (
	// Invalid means the last attempt failed or no attempt was ever made.
	Invalid Status = iota
	// WakingUp means the trigger pulse was sent and the acknowledgement edge is pending.
	WakingUp
	// Receiving means the sensor is transmitting its 40 data bits.
	Receiving
	// Done means all 40 bits were received and the checksum matched.
	Done
)

// String returns the upper-case name used in logs and payloads.
func (s Status) String() string {
	switch s {
	case Invalid:
		return "INVALID"
	case WakingUp:
		return "WAKING_UP"
	case Receiving:
		return "READING"
	case Done:
		return "DONE"
	}
	return fmt.Sprintf("STATUS(%d)", uint32(s))
}

// active reports whether an attempt is in flight.
func (s Status) active() bool {
	return s == WakingUp || s == Receiving
}

// Result is the outcome of the most recently completed attempt.
type Result uint32

const (
	// None means no attempt has completed yet.
	None Result = iota
	// Ok means the frame was received and its checksum matched.
	Ok
	// ChecksumMismatch means 40 bits arrived but the checksum byte disagreed.
	ChecksumMismatch
	// WakeUpError means the acknowledgement pulse was outside its timing window.
	WakeUpError
	// DataError means a data bit pulse was outside its timing window.
	DataError
	// TimedOut means the caller gave up waiting and the attempt was abandoned.
	TimedOut
)

// String returns the upper-case name used in logs and payloads.
func (r Result) String() string {
	switch r {
	case None:
		return "NONE"
	case Ok:
		return "OK"
	case ChecksumMismatch:
		return "CHECKSUM_MISMATCH"
	case WakeUpError:
		return "WAKE_UP_ERROR"
	case DataError:
		return "DATA_ERROR"
	case TimedOut:
		return "TIMED_OUT"
	}
	return fmt.Sprintf("RESULT(%d)", uint32(r))
}

// Scale selects how decoded values are presented to callers.
// The decode itself is always fixed-point tenths.
type Scale int

const (
	// ScaleUnit presents values in °C and %RH (tenths divided by ten).
	ScaleUnit Scale = iota
	// ScaleTenths presents the raw tenths.
	ScaleTenths
)

// String returns the config spelling of the scale.
func (s Scale) String() string {
	if s == ScaleTenths {
		return "tenths"
	}
	return "unit"
}

// ParseScale parses "unit" or "tenths" (case-insensitive).
func ParseScale(v string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "unit", "":
		return ScaleUnit, nil
	case "tenths":
		return ScaleTenths, nil
	}
	return ScaleUnit, fmt.Errorf("dht22: unknown scale %q (want unit or tenths)", v)
}

// Reading is a decoded sensor frame in fixed-point tenths.
type Reading struct {
	Humidity    uint16 // tenths of a percent relative humidity
	Temperature int16  // tenths of a degree Celsius
}

// HumidityAt returns the humidity in the given presentation scale.
func (r Reading) HumidityAt(s Scale) float64 {
	if s == ScaleTenths {
		return float64(r.Humidity)
	}
	return float64(r.Humidity) / 10
}

// TemperatureAt returns the temperature in the given presentation scale.
func (r Reading) TemperatureAt(s Scale) float64 {
	if s == ScaleTenths {
		return float64(r.Temperature)
	}
	return float64(r.Temperature) / 10
}

func (r Reading) String() string {
	return fmt.Sprintf("%.1f°C %.1f%%RH", r.TemperatureAt(ScaleUnit), r.HumidityAt(ScaleUnit))
}
