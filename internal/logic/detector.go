package logic

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// Detector decides which read attempts are worth publishing.
type Detector struct {
	deadband      uint16
	last          dht22.Reading
	baselined     bool
	failing       bool
	lastResult    dht22.Result
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector that publishes a reading only when it moves
// by at least deadband tenths in either quantity. A deadband of 0 publishes
// every successful reading. The startTime is used for heartbeat uptime.
func NewDetector(deadband uint16, startTime time.Time) *Detector {
	return &Detector{
		deadband:      deadband,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the outcome of one read attempt and returns any events that
// should be emitted.
//
// A READING is emitted for the first good reading and whenever a good reading
// leaves the deadband around the last published one. A READ_ERROR is emitted
// once per run of failures, so a disconnected sensor does not flood the broker.
func (d *Detector) Process(input Input) []Event {
	d.count(input.Result)
	d.lastResult = input.Result

	if input.Result != dht22.Ok {
		if d.failing {
			return nil
		}
		d.failing = true
		return []Event{{
			Timestamp: input.Time,
			Type:      EventReadError,
			Result:    input.Result,
		}}
	}

	d.failing = false
	if d.baselined && !d.moved(input.Reading) {
		return nil
	}

	d.baselined = true
	d.last = input.Reading
	return []Event{{
		Timestamp: input.Time,
		Type:      EventReading,
		Result:    dht22.Ok,
		Reading:   input.Reading,
	}}
}

func (d *Detector) count(r dht22.Result) {
	switch r {
	case dht22.Ok:
		d.eventCounts.Ok++
	case dht22.ChecksumMismatch:
		d.eventCounts.ChecksumMismatch++
	case dht22.WakeUpError:
		d.eventCounts.WakeUpError++
	case dht22.DataError:
		d.eventCounts.DataError++
	case dht22.TimedOut:
		d.eventCounts.TimedOut++
	}
}

// moved reports whether r is outside the deadband around the last published reading.
func (d *Detector) moved(r dht22.Reading) bool {
	dt := int(r.Temperature) - int(d.last.Temperature)
	dh := int(r.Humidity) - int(d.last.Humidity)
	return abs(dt) >= int(d.deadband) || abs(dh) >= int(d.deadband)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// IsBaselined returns whether at least one good reading has been seen.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentReading returns the last published reading.
func (d *Detector) CurrentReading() dht22.Reading {
	return d.last
}

// LastResult returns the result of the most recent attempt.
func (d *Detector) LastResult() dht22.Result {
	return d.lastResult
}

// EventCountsSnapshot returns a copy of the attempt counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled). Unlike events, heartbeats do not wait for
// a first good reading: a sensor that never answers should still be visible.
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
