package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
// Temperature and Humidity are the last good values and are omitted until
// the first good reading.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	SensorID      string     `json:"sensor_id"`
	State         string     `json:"state"`
	LastResult    string     `json:"last_result"`
	Temperature   *float64   `json:"temperature,omitempty"`
	Humidity      *float64   `json:"humidity,omitempty"`
	Scale         string     `json:"scale"`
	Ready         bool       `json:"ready"`
	LastRead      string     `json:"last_read,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"read_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of read attempt counts.
type CountsJSON struct {
	Ok               int `json:"ok"`
	ChecksumMismatch int `json:"checksum_mismatch"`
	WakeUpError      int `json:"wake_up_error"`
	DataError        int `json:"data_error"`
	TimedOut         int `json:"timed_out"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip          string `json:"chip"`
	Pin           int    `json:"pin"`
	IntervalMs    int64  `json:"interval_ms"`
	ReadTimeoutMs int64  `json:"read_timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Deadband      uint16 `json:"deadband"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	cfg := snap.Config
	inner := StatusInner{
		SensorID:      cfg.SensorID,
		State:         snap.State.String(),
		LastResult:    snap.LastResult.String(),
		Scale:         cfg.Scale.String(),
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Counts: CountsJSON{
			Ok:               snap.Counts.Ok,
			ChecksumMismatch: snap.Counts.ChecksumMismatch,
			WakeUpError:      snap.Counts.WakeUpError,
			DataError:        snap.Counts.DataError,
			TimedOut:         snap.Counts.TimedOut,
		},
		Config: ConfigJSON{
			Chip:          cfg.Chip,
			Pin:           cfg.Pin,
			IntervalMs:    cfg.IntervalMs,
			ReadTimeoutMs: cfg.ReadTimeoutMs,
			HeartbeatMs:   cfg.HeartbeatMs,
			Deadband:      cfg.Deadband,
			Broker:        cfg.Broker,
			HTTPAddr:      cfg.HTTPAddr,
		},
	}

	if snap.Baselined {
		temp := snap.Reading.TemperatureAt(cfg.Scale)
		hum := snap.Reading.HumidityAt(cfg.Scale)
		inner.Temperature = &temp
		inner.Humidity = &hum
	}
	if !snap.LastRead.IsZero() {
		inner.LastRead = snap.LastRead.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
