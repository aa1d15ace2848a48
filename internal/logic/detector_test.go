package logic

import (
	"testing"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

var (
	start    = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	nominal  = dht22.Reading{Humidity: 400, Temperature: 200}
	interval = 5 * time.Second
)

func at(i int) time.Time {
	return start.Add(time.Duration(i) * interval)
}

func ok(i int, r dht22.Reading) Input {
	return Input{Result: dht22.Ok, Reading: r, Time: at(i)}
}

func fail(i int, r dht22.Result) Input {
	return Input{Result: r, Time: at(i)}
}

func TestNewDetector(t *testing.T) {
	d := NewDetector(3, start)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.deadband != 3 {
		t.Errorf("expected deadband 3, got %d", d.deadband)
	}
	if d.IsBaselined() {
		t.Error("new detector should not be baselined")
	}
	if !d.lastHeartbeat.Equal(start) {
		t.Errorf("expected lastHeartbeat %v, got %v", start, d.lastHeartbeat)
	}
	if d.LastResult() != dht22.None {
		t.Errorf("expected NONE, got %s", d.LastResult())
	}
}

func TestFirstReadingPublished(t *testing.T) {
	d := NewDetector(1, start)

	events := d.Process(ok(1, nominal))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventReading {
		t.Errorf("expected READING, got %s", e.Type)
	}
	if e.Reading != nominal {
		t.Errorf("expected %v, got %v", nominal, e.Reading)
	}
	if e.Result != dht22.Ok {
		t.Errorf("expected OK, got %s", e.Result)
	}
	if !e.Timestamp.Equal(at(1)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after first reading")
	}
	if d.CurrentReading() != nominal {
		t.Errorf("expected current %v, got %v", nominal, d.CurrentReading())
	}
}

func TestDeadband(t *testing.T) {
	d := NewDetector(3, start)
	d.Process(ok(0, nominal))

	tests := []struct {
		r    dht22.Reading
		want bool
	}{
		{dht22.Reading{Humidity: 400, Temperature: 200}, false},
		{dht22.Reading{Humidity: 402, Temperature: 198}, false},
		{dht22.Reading{Humidity: 403, Temperature: 200}, true},
		// Deadband is relative to the last published reading (403/200).
		{dht22.Reading{Humidity: 401, Temperature: 201}, false},
		{dht22.Reading{Humidity: 403, Temperature: 197}, true},
	}

	for i, tt := range tests {
		events := d.Process(ok(i+1, tt.r))
		if got := len(events) == 1; got != tt.want {
			t.Errorf("step %d (%v): expected publish=%v, got %d events", i, tt.r, tt.want, len(events))
		}
	}
}

func TestZeroDeadbandPublishesEveryReading(t *testing.T) {
	d := NewDetector(0, start)
	for i := 0; i < 5; i++ {
		if events := d.Process(ok(i, nominal)); len(events) != 1 {
			t.Errorf("iteration %d: expected 1 event, got %d", i, len(events))
		}
	}
}

func TestNegativeTemperatureCrossesDeadband(t *testing.T) {
	d := NewDetector(5, start)
	d.Process(ok(0, dht22.Reading{Humidity: 500, Temperature: 2}))

	events := d.Process(ok(1, dht22.Reading{Humidity: 500, Temperature: -3}))
	if len(events) != 1 {
		t.Fatalf("expected a 0.5°C swing across zero to publish, got %d events", len(events))
	}
	if events[0].Reading.Temperature != -3 {
		t.Errorf("expected -3, got %d", events[0].Reading.Temperature)
	}
}

func TestReadErrorOncePerRun(t *testing.T) {
	d := NewDetector(1, start)

	events := d.Process(fail(0, dht22.WakeUpError))
	if len(events) != 1 {
		t.Fatalf("expected 1 event for first failure, got %d", len(events))
	}
	if events[0].Type != EventReadError || events[0].Result != dht22.WakeUpError {
		t.Errorf("expected READ_ERROR/WAKE_UP_ERROR, got %s/%s", events[0].Type, events[0].Result)
	}
	if events[0].Reading != (dht22.Reading{}) {
		t.Errorf("READ_ERROR should carry no reading, got %v", events[0].Reading)
	}

	for i, r := range []dht22.Result{dht22.DataError, dht22.TimedOut, dht22.ChecksumMismatch} {
		if events := d.Process(fail(i+1, r)); len(events) != 0 {
			t.Errorf("repeat failure %s: expected no events, got %d", r, len(events))
		}
	}
	if d.LastResult() != dht22.ChecksumMismatch {
		t.Errorf("expected last result CHECKSUM_MISMATCH, got %s", d.LastResult())
	}

	// Recovery re-arms the error event.
	d.Process(ok(5, nominal))
	if events := d.Process(fail(6, dht22.DataError)); len(events) != 1 {
		t.Errorf("expected READ_ERROR after recovery, got %d events", len(events))
	}
}

func TestFailureDoesNotMoveBaseline(t *testing.T) {
	d := NewDetector(3, start)
	d.Process(ok(0, nominal))
	d.Process(fail(1, dht22.DataError))

	// Same value after the failure: nothing new to say.
	if events := d.Process(ok(2, nominal)); len(events) != 0 {
		t.Errorf("expected no events for unchanged reading after failure, got %d", len(events))
	}
	if d.CurrentReading() != nominal {
		t.Errorf("expected current %v, got %v", nominal, d.CurrentReading())
	}
}

func TestFailureBeforeBaseline(t *testing.T) {
	d := NewDetector(1, start)
	d.Process(fail(0, dht22.TimedOut))

	if d.IsBaselined() {
		t.Error("failures must not establish a baseline")
	}
	if events := d.Process(ok(1, nominal)); len(events) != 1 || events[0].Type != EventReading {
		t.Errorf("expected READING after early failure, got %v", events)
	}
}

func TestEventCounts(t *testing.T) {
	d := NewDetector(1, start)
	inputs := []Input{
		ok(0, nominal),
		ok(1, nominal),
		fail(2, dht22.ChecksumMismatch),
		fail(3, dht22.WakeUpError),
		fail(4, dht22.WakeUpError),
		fail(5, dht22.DataError),
		fail(6, dht22.TimedOut),
		ok(7, nominal),
	}
	for _, in := range inputs {
		d.Process(in)
	}

	c := d.EventCountsSnapshot()
	want := EventCounts{Ok: 3, ChecksumMismatch: 1, WakeUpError: 2, DataError: 1, TimedOut: 1}
	if c != want {
		t.Errorf("expected %+v, got %+v", want, c)
	}
	if c.Failures() != 5 {
		t.Errorf("expected 5 failures, got %d", c.Failures())
	}
	if c.Total() != 8 {
		t.Errorf("expected 8 attempts, got %d", c.Total())
	}
}

func TestEventCountsSnapshotIsCopy(t *testing.T) {
	d := NewDetector(1, start)
	d.Process(ok(0, nominal))
	snap := d.EventCountsSnapshot()
	d.Process(ok(1, nominal))

	if snap.Ok != 1 {
		t.Errorf("snapshot should not change, got %d", snap.Ok)
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	d := NewDetector(1, start)
	if hb := d.CheckHeartbeat(start.Add(time.Hour), 0); hb != nil {
		t.Error("expected nil heartbeat with zero interval")
	}
	if hb := d.CheckHeartbeat(start.Add(time.Hour), -time.Second); hb != nil {
		t.Error("expected nil heartbeat with negative interval")
	}
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	d := NewDetector(1, start)
	if hb := d.CheckHeartbeat(start.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat before interval")
	}
}

func TestCheckHeartbeatWithoutReadings(t *testing.T) {
	d := NewDetector(1, start)
	d.Process(fail(0, dht22.WakeUpError))

	hb := d.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat even with no good readings")
	}
	if hb.Counts.WakeUpError != 1 {
		t.Errorf("expected 1 wake-up error in heartbeat, got %d", hb.Counts.WakeUpError)
	}
}

func TestCheckHeartbeatUpdatesLastTime(t *testing.T) {
	d := NewDetector(1, start)
	first := start.Add(15 * time.Minute)

	if hb := d.CheckHeartbeat(first, 15*time.Minute); hb == nil {
		t.Fatal("expected first heartbeat")
	}
	if hb := d.CheckHeartbeat(first.Add(time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat one minute later")
	}
	hb := d.CheckHeartbeat(first.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("expected uptime 30m, got %v", hb.Uptime)
	}
	if !hb.Timestamp.Equal(first.Add(15 * time.Minute)) {
		t.Errorf("unexpected timestamp: %v", hb.Timestamp)
	}
}
