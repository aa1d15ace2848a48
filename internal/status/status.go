// Package status provides a thread-safe status tracker for the dht22-sensor daemon.
// It is read by the HTTP handlers and by MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	SensorID      string
	Chip          string
	Pin           int
	IntervalMs    int64
	ReadTimeoutMs int64
	HeartbeatMs   int64
	Deadband      uint16
	Scale         dht22.Scale
	Broker        string
	HTTPAddr      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         dht22.Status
	LastResult    dht22.Result
	Reading       dht22.Reading
	Baselined     bool
	LastRead      time.Time
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of a read attempt.
// Called from runLoop after every read.
func (t *Tracker) Update(state dht22.Status, result dht22.Result, reading dht22.Reading, baselined bool, counts logic.EventCounts, at time.Time) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.LastResult = result
	t.snap.Reading = reading
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.snap.LastRead = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
