// Package logic contains pure business logic for turning read attempts into
// publishable events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// EventType identifies what an event reports.
type EventType string

const (
	EventReading   EventType = "READING"
	EventReadError EventType = "READ_ERROR"
)

// Event is a reading or failure to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Result    dht22.Result
	Reading   dht22.Reading // zero for READ_ERROR
}

// Input is the outcome of one read attempt.
type Input struct {
	Result  dht22.Result
	Reading dht22.Reading // only meaningful when Result is Ok
	Time    time.Time
}

// EventCounts tracks the outcome of every read attempt since startup.
type EventCounts struct {
	Ok               int
	ChecksumMismatch int
	WakeUpError      int
	DataError        int
	TimedOut         int
}

// Failures returns the number of attempts that did not produce a reading.
func (c EventCounts) Failures() int {
	return c.ChecksumMismatch + c.WakeUpError + c.DataError + c.TimedOut
}

// Total returns the number of attempts.
func (c EventCounts) Total() int {
	return c.Ok + c.Failures()
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
