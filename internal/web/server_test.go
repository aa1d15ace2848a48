package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/logic"
	"github.com/sweeney/dht22-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		SensorID:      "greenhouse",
		Chip:          "gpiochip0",
		Pin:           4,
		IntervalMs:    5000,
		ReadTimeoutMs: 250,
		HeartbeatMs:   900000,
		Deadband:      1,
		Scale:         dht22.ScaleUnit,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	at := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	tr.Update(dht22.Done, dht22.Ok, dht22.Reading{Humidity: 612, Temperature: 215}, true,
		logic.EventCounts{Ok: 5, ChecksumMismatch: 1}, at)
	tr.SetMQTTConnected(true)

	resp, body := getBody(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	s := sj.Status
	if s.State != "DONE" || s.LastResult != "OK" {
		t.Errorf("State/LastResult: got %s/%s", s.State, s.LastResult)
	}
	if s.Temperature == nil || *s.Temperature != 21.5 {
		t.Errorf("Temperature: got %v, want 21.5", s.Temperature)
	}
	if s.Humidity == nil || *s.Humidity != 61.2 {
		t.Errorf("Humidity: got %v, want 61.2", s.Humidity)
	}
	if s.Counts.Ok != 5 || s.Counts.ChecksumMismatch != 1 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if !s.MQTT.Connected {
		t.Error("MQTT: expected connected")
	}
	if s.SensorID != "greenhouse" {
		t.Errorf("SensorID: got %q", s.SensorID)
	}
}

func TestJSONOmitsReadingBeforeFirstGoodRead(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(dht22.Done, dht22.WakeUpError, dht22.Reading{}, false,
		logic.EventCounts{WakeUpError: 1}, time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC))

	_, body := getBody(t, ts.URL+"/index.json")

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	s := parsed["status"]
	if _, ok := s["temperature"]; ok {
		t.Error("temperature should be omitted without a good reading")
	}
	if s["last_result"] != "WAKE_UP_ERROR" {
		t.Errorf("last_result: got %v", s["last_result"])
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(dht22.Done, dht22.Ok, dht22.Reading{Humidity: 455, Temperature: -73}, true,
		logic.EventCounts{Ok: 1}, time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC))

	resp, body := getBody(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"DHT22 greenhouse", "-7.3 °C", "45.5 %RH", "gpiochip0 pin 4"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLBeforeFirstReading(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, "no good reading yet") {
		t.Error("expected placeholder before first reading")
	}
	if !strings.Contains(body, "never") {
		t.Error("expected last read to show never")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestReadingChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)
	at := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	tr.Update(dht22.Done, dht22.Ok, dht22.Reading{Humidity: 400, Temperature: 200}, true, logic.EventCounts{Ok: 1}, at)
	tr.Update(dht22.Done, dht22.Ok, dht22.Reading{Humidity: 410, Temperature: 190}, true, logic.EventCounts{Ok: 2}, at.Add(5*time.Second))

	_, body := getBody(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if *sj.Status.Temperature != 19 || *sj.Status.Humidity != 41 {
		t.Errorf("expected latest reading 19/41, got %v/%v", *sj.Status.Temperature, *sj.Status.Humidity)
	}
	if sj.Status.Counts.Ok != 2 {
		t.Errorf("Counts.Ok: got %d, want 2", sj.Status.Counts.Ok)
	}
}

func TestJSONNotCached(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/index.json")
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control: got %q, want no-store", cc)
	}
}

func TestWriteMethodsRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.html", "/index.json"} {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("POST %s: Allow got %q", path, allow)
		}
	}
}
