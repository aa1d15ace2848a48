// Command dht22-sensor reads a DHT22 temperature/humidity sensor on a GPIO
// line and publishes readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/dht22-sensor/internal/config"
	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/logic"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/observability"
	"github.com/sweeney/dht22-sensor/internal/status"
	"github.com/sweeney/dht22-sensor/internal/web"
)

const appName = "dht22-sensor"

func main() {
	observability.InitLogger(appName, "info")

	cfg, once, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	observability.InitLogger(appName, cfg.LogLevel)

	if err := run(cfg, once); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// parseConfig builds the effective configuration: defaults, then the optional
// config file, then any flags given explicitly on the command line.
func parseConfig(fs *flag.FlagSet, args []string) (config.Config, bool, error) {
	def := config.Default()
	fl := def
	var deadband uint

	configPath := fs.String("config", "", "Path to a .yaml/.yml or .toml config file")
	fs.StringVar(&fl.Chip, "chip", def.Chip, "GPIO chip name")
	fs.IntVar(&fl.Pin, "pin", def.Pin, "Line offset of the sensor data pin")
	fs.StringVar(&fl.SensorID, "sensor-id", def.SensorID, "Sensor id used in MQTT topics")
	fs.DurationVar(&fl.Interval, "interval", def.Interval, "Time between reads (minimum 2s)")
	fs.DurationVar(&fl.ReadTimeout, "read-timeout", def.ReadTimeout, "Give up on a read after this long")
	fs.DurationVar(&fl.Heartbeat, "heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&fl.Broker, "broker", def.Broker, "MQTT broker address")
	fs.StringVar(&fl.HTTPAddr, "http", def.HTTPAddr, "HTTP status address (empty to disable)")
	fs.UintVar(&deadband, "deadband", uint(def.Deadband), "Publish only when a value moves by this many tenths")
	fs.StringVar(&fl.Scale, "scale", def.Scale, `Published value scale: "unit" or "tenths"`)
	fs.StringVar(&fl.LogLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	once := fs.Bool("once", false, "Take one reading, print it and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}
	if deadband > math.MaxUint16 {
		return config.Config{}, false, fmt.Errorf("deadband %d out of range", deadband)
	}
	fl.Deadband = uint16(deadband)

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Chip = fl.Chip
		case "pin":
			cfg.Pin = fl.Pin
		case "sensor-id":
			cfg.SensorID = fl.SensorID
		case "interval":
			cfg.Interval = fl.Interval
		case "read-timeout":
			cfg.ReadTimeout = fl.ReadTimeout
		case "heartbeat":
			cfg.Heartbeat = fl.Heartbeat
		case "broker":
			cfg.Broker = fl.Broker
		case "http":
			cfg.HTTPAddr = fl.HTTPAddr
		case "deadband":
			cfg.Deadband = fl.Deadband
		case "scale":
			cfg.Scale = fl.Scale
		case "log-level":
			cfg.LogLevel = fl.LogLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, err
	}
	return cfg, *once, nil
}

func run(cfg config.Config, once bool) error {
	scale, err := dht22.ParseScale(cfg.Scale)
	if err != nil {
		return err
	}

	line, err := gpio.NewRealLine(cfg.Chip, cfg.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	sensor := dht22.New(line, gpio.NewMonotonicClock())
	line.OnFallingEdge(sensor.OnFallingEdgeAt)

	if once {
		return readOnce(sensor, cfg.ReadTimeout, scale, os.Stdout)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: appName + "-" + cfg.SensorID,
		SensorID: cfg.SensorID,
		Scale:    scale,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the event carries a full snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		SensorID:      cfg.SensorID,
		Chip:          cfg.Chip,
		Pin:           cfg.Pin,
		IntervalMs:    cfg.Interval.Milliseconds(),
		ReadTimeoutMs: cfg.ReadTimeout.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Deadband:      cfg.Deadband,
		Scale:         scale,
		Broker:        cfg.Broker,
		HTTPAddr:      cfg.HTTPAddr,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Error().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Str("chip", cfg.Chip).
		Int("pin", cfg.Pin).
		Str("sensor_id", cfg.SensorID).
		Dur("interval", cfg.Interval).
		Dur("read_timeout", cfg.ReadTimeout).
		Dur("heartbeat", cfg.Heartbeat).
		Str("broker", cfg.Broker).
		Msg("started")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(sensor, publisher, publisher, tracker, cfg.Deadband, cfg.ReadTimeout, cfg.Heartbeat, time.Now, ticker.C, sigCh)
	if dropped := line.Dropped(); dropped > 0 {
		log.Warn().Uint32("dropped", dropped).Msg("edge events dropped by the kernel")
	}
	return err
}

// reader is the part of *dht22.Sensor the daemon drives.
type reader interface {
	BlockingRead(ctx context.Context) (dht22.Result, error)
	LastReading() dht22.Reading
	State() dht22.Status
}

func readOnce(sensor reader, timeout time.Duration, scale dht22.Scale, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := sensor.BlockingRead(ctx)
	if err != nil {
		return err
	}
	if result != dht22.Ok {
		return fmt.Errorf("read failed: %s", result)
	}

	r := sensor.LastReading()
	if scale == dht22.ScaleTenths {
		fmt.Fprintf(w, "Temperature: %d\nHumidity: %d\n", r.Temperature, r.Humidity)
		return nil
	}
	fmt.Fprintf(w, "Temperature: %.1f°C\nHumidity: %.1f%%\n", r.TemperatureAt(scale), r.HumidityAt(scale))
	return nil
}

func runLoop(sensor reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, deadband uint16, readTimeout, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(deadband, startTime)
	var lastGood dht22.Reading

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Error().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
			result, err := sensor.BlockingRead(ctx)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("sensor read error")
				continue
			}

			input := logic.Input{Result: result, Time: t}
			if result == dht22.Ok {
				input.Reading = sensor.LastReading()
				lastGood = input.Reading
				log.Debug().Stringer("reading", input.Reading).Msg("read ok")
			} else {
				log.Debug().Stringer("result", result).Msg("read failed")
			}

			for _, event := range detector.Process(input) {
				if event.Type == logic.EventReadError {
					log.Warn().Stringer("result", event.Result).Msg("event: " + string(event.Type))
				} else {
					log.Info().Stringer("reading", event.Reading).Msg("event: " + string(event.Type))
				}
				if err := publisher.Publish(event); err != nil {
					// Publish failures never stop the loop.
					log.Error().Err(err).Msg("publish error")
				}
			}

			if tracker != nil {
				tracker.Update(sensor.State(), result, lastGood, detector.IsBaselined(), detector.EventCountsSnapshot(), t)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			hb := detector.CheckHeartbeat(t, heartbeat)
			if hb == nil {
				continue
			}
			log.Info().
				Dur("uptime", hb.Uptime).
				Int("ok", hb.Counts.Ok).
				Int("failures", hb.Counts.Failures()).
				Msg("heartbeat")

			hbEvent := mqtt.SystemEvent{
				Timestamp: hb.Timestamp,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Error().Err(err).Msg("heartbeat publish error")
			}
		}
	}
}
