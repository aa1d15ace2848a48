package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads the file at path on top of Default. The format is chosen by
// extension: .yaml/.yml or .toml. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".toml":
		return loadTOML(path)
	default:
		return Config{}, fmt.Errorf("load config %s: unsupported extension %q", path, ext)
	}
}

func loadYAML(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

type tomlConfig struct {
	Chip        string `toml:"chip"`
	Pin         int    `toml:"pin"`
	SensorID    string `toml:"sensor_id"`
	Interval    string `toml:"interval"`
	ReadTimeout string `toml:"read_timeout"`
	Heartbeat   string `toml:"heartbeat"`
	Broker      string `toml:"broker"`
	HTTPAddr    string `toml:"http_addr"`
	Deadband    uint16 `toml:"deadband"`
	Scale       string `toml:"scale"`
	LogLevel    string `toml:"log_level"`
}

func loadTOML(path string) (Config, error) {
	cfg := Default()

	var raw tomlConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("chip") {
		cfg.Chip = strings.TrimSpace(raw.Chip)
	}
	if meta.IsDefined("pin") {
		cfg.Pin = raw.Pin
	}
	if meta.IsDefined("sensor_id") {
		cfg.SensorID = strings.TrimSpace(raw.SensorID)
	}
	if meta.IsDefined("broker") {
		cfg.Broker = strings.TrimSpace(raw.Broker)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("deadband") {
		cfg.Deadband = raw.Deadband
	}
	if meta.IsDefined("scale") {
		cfg.Scale = strings.TrimSpace(raw.Scale)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"interval", raw.Interval, &cfg.Interval},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"heartbeat", raw.Heartbeat, &cfg.Heartbeat},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}
