package metrics

import (
	"testing"
	"time"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()

	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}

	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}

	if time.Since(timer.start) > time.Second {
		t.Error("NewTimer() start time is not recent")
	}
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()

	sleepDuration := 20 * time.Millisecond
	time.Sleep(sleepDuration)

	duration := timer.Duration()
	if duration < sleepDuration {
		t.Errorf("Timer.Duration() = %v, want >= %v", duration, sleepDuration)
	}
}

// TestTimerObserveDurationAgainstStoreHistogram exercises the path that
// cmd/storectl's persist command (around PersistPack) and
// gitstore.LoadEntity use: NewTimer then ObserveDurationVec against one of
// this package's own app-labeled histograms.
func TestTimerObserveDurationAgainstStoreHistogram(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	timer.ObserveDurationVec(StorePersistDuration, "issues")

	metric, err := StorePersistDuration.GetMetricWithLabelValues("issues")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if metric == nil {
		t.Fatal("expected a histogram observer for app=issues")
	}
}

func TestTimerObserveDurationAgainstLoadHistogram(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDurationVec(StoreLoadDuration, "issues")

	metric, err := StoreLoadDuration.GetMetricWithLabelValues("issues")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if metric == nil {
		t.Fatal("expected a histogram observer for app=issues")
	}
}

func TestTimerMultipleCallsAreMonotonic(t *testing.T) {
	timer := NewTimer()

	time.Sleep(10 * time.Millisecond)
	duration1 := timer.Duration()

	time.Sleep(10 * time.Millisecond)
	duration2 := timer.Duration()

	if duration2 <= duration1 {
		t.Errorf("second Duration() call should be longer: first=%v, second=%v", duration1, duration2)
	}
}

func TestMultipleTimersRunIndependently(t *testing.T) {
	timer1 := NewTimer()
	time.Sleep(20 * time.Millisecond)

	timer2 := NewTimer()
	time.Sleep(20 * time.Millisecond)

	duration1 := timer1.Duration()
	duration2 := timer2.Duration()

	if duration1 <= duration2 {
		t.Errorf("timer1 should be running longer: timer1=%v, timer2=%v", duration1, duration2)
	}
}
