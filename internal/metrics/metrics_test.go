package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	durations  []durationCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type durationCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveDuration(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, durationCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("reviews_etl", "load", nil, 2*time.Second)
	RecordStep("reviews_etl", "commit", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.durations) != 2 {
		t.Fatalf("calls = %d counters, %d durations; want 2/2", len(fb.counters), len(fb.durations))
	}

	c0 := fb.counters[0]
	if c0.name != "reviews_etl_step_total" || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want reviews_etl_step_total delta=1", c0)
	}
	if c0.labels["step"] != "load" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}

	d0 := fb.durations[0]
	if d0.name != "reviews_etl_step_duration_seconds" {
		t.Fatalf("duration[0].name = %q", d0.name)
	}
	if d0.value < 2.0-0.001 || d0.value > 2.0+0.001 {
		t.Fatalf("duration[0].value = %v; want ~2.0", d0.value)
	}

	c1 := fb.counters[1]
	if c1.labels["step"] != "commit" || c1.labels["status"] != "failure" {
		t.Fatalf("counter[1] labels = %v", c1.labels)
	}
	d1 := fb.durations[1]
	if d1.value < 1.5-0.001 || d1.value > 1.5+0.001 {
		t.Fatalf("duration[1].value = %v; want ~1.5", d1.value)
	}
}

func TestRecordRows(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("reviews_etl", "loaded", 4)
	RecordRows("reviews_etl", "users", 0) // ignored
	RecordRows("reviews_etl", "reviews", 4)

	if len(fb.counters) != 2 {
		t.Fatalf("counter calls = %d, want 2", len(fb.counters))
	}

	c0 := fb.counters[0]
	if c0.name != "reviews_etl_records_total" || c0.delta != 4 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["job"] != "reviews_etl" || c0.labels["kind"] != "loaded" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}
	if c1 := fb.counters[1]; c1.labels["kind"] != "reviews" {
		t.Fatalf("counter[1] labels = %v", c1.labels)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
