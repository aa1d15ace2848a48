// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/logic"
)

// TopicPrefix is the root of every topic this daemon publishes to.
const TopicPrefix = "climate/dht22"

// Topic returns the topic for reading events from the given sensor.
func Topic(sensorID string) string {
	return fmt.Sprintf("%s/%s/events", TopicPrefix, sensorID)
}

// TopicSystem returns the topic for system lifecycle events from the given sensor.
func TopicSystem(sensorID string) string {
	return fmt.Sprintf("%s/%s/system", TopicPrefix, sensorID)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a reading event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	DHT22 ReadingPayload `json:"dht22"`
}

// ReadingPayload contains the reading details.
// Temperature and Humidity are omitted for READ_ERROR events.
type ReadingPayload struct {
	Timestamp   string   `json:"timestamp"`
	Event       string   `json:"event"`
	Result      string   `json:"result"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Scale       string   `json:"scale"`
}

// FormatPayload creates the JSON payload for a reading event, with values
// presented in the given scale.
func FormatPayload(event logic.Event, scale dht22.Scale) ([]byte, error) {
	inner := ReadingPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Result:    event.Result.String(),
		Scale:     scale.String(),
	}
	if event.Type == logic.EventReading {
		temp := event.Reading.TemperatureAt(scale)
		hum := event.Reading.HumidityAt(scale)
		inner.Temperature = &temp
		inner.Humidity = &hum
	}
	return json.Marshal(Payload{DHT22: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
