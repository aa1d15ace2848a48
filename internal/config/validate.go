package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// Validate reports every problem with cfg at once. It does not modify cfg.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Chip) == "" {
		errs = append(errs, errors.New("chip must not be empty"))
	}
	if c.Pin < 0 {
		errs = append(errs, fmt.Errorf("pin must be >= 0, got %d", c.Pin))
	}
	if strings.TrimSpace(c.SensorID) == "" {
		errs = append(errs, errors.New("sensor_id must not be empty"))
	} else if strings.ContainsAny(c.SensorID, "/+#") {
		errs = append(errs, fmt.Errorf("sensor_id %q must not contain MQTT topic characters", c.SensorID))
	}
	if c.Interval < MinInterval {
		errs = append(errs, fmt.Errorf("interval must be at least %s, got %s", MinInterval, c.Interval))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	} else if c.ReadTimeout >= c.Interval {
		errs = append(errs, fmt.Errorf("read_timeout %s must be shorter than interval %s", c.ReadTimeout, c.Interval))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must be >= 0, got %s", c.Heartbeat))
	}
	if strings.TrimSpace(c.Broker) == "" {
		errs = append(errs, errors.New("broker must not be empty"))
	}
	if _, err := dht22.ParseScale(c.Scale); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}
