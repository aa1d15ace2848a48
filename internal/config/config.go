// Package config holds the daemon configuration: defaults, file loading and
// validation. Command-line flags are layered on top by the caller.
package config

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/gpio"
)

// MinInterval is the shortest time the sensor tolerates between reads.
const MinInterval = 2 * time.Second

// Config is the full daemon configuration.
type Config struct {
	Chip        string        `yaml:"chip"`
	Pin         int           `yaml:"pin"`
	SensorID    string        `yaml:"sensor_id"`
	Interval    time.Duration `yaml:"interval"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	Broker      string        `yaml:"broker"`
	HTTPAddr    string        `yaml:"http_addr"`
	Deadband    uint16        `yaml:"deadband"`
	Scale       string        `yaml:"scale"`
	LogLevel    string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Chip:        gpio.DefaultChip,
		Pin:         gpio.DefaultPin,
		SensorID:    "dht22",
		Interval:    5 * time.Second,
		ReadTimeout: 250 * time.Millisecond,
		Heartbeat:   15 * time.Minute,
		Broker:      "tcp://localhost:1883",
		HTTPAddr:    ":8080",
		Deadband:    1,
		Scale:       "unit",
		LogLevel:    "info",
	}
}
