package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCall_CoalescesBurst(t *testing.T) {
	d := New()
	var calls, last atomic.Int32
	for i := range 5 {
		d.Call("k", 30*time.Millisecond, func() {
			calls.Add(1)
			last.Store(int32(i))
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if got := last.Load(); got != 4 {
		t.Errorf("last = %d, want 4", got)
	}
	if d.Pending("k") {
		t.Error("Pending = true after firing")
	}
}

func TestCall_KeysAreIndependent(t *testing.T) {
	d := New()
	var a, b atomic.Int32
	d.Call("a", 10*time.Millisecond, func() { a.Add(1) })
	d.Call("b", 10*time.Millisecond, func() { b.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("a = %d, b = %d, want 1 each", a.Load(), b.Load())
	}
}

func TestCall_ShorterDelayReplacesLonger(t *testing.T) {
	d := New()
	var which atomic.Value
	d.Call("k", time.Hour, func() { which.Store("slow") })
	d.Call("k", 10*time.Millisecond, func() { which.Store("fast") })
	time.Sleep(60 * time.Millisecond)
	if got, _ := which.Load().(string); got != "fast" {
		t.Errorf("fired %q, want fast", got)
	}
}

func TestCancel(t *testing.T) {
	d := New()
	var calls atomic.Int32
	d.Call("k", 20*time.Millisecond, func() { calls.Add(1) })
	if !d.Pending("k") {
		t.Fatal("Pending = false, want true")
	}
	d.Cancel("k")
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d after Cancel, want 0", calls.Load())
	}
}

func TestCancelAll_KeepsDebouncerUsable(t *testing.T) {
	d := New()
	var calls atomic.Int32
	d.Call("a", 20*time.Millisecond, func() { calls.Add(1) })
	d.Call("b", 20*time.Millisecond, func() { calls.Add(1) })
	d.CancelAll()
	d.Call("c", 10*time.Millisecond, func() { calls.Add(10) })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 10 {
		t.Errorf("calls = %d, want 10", got)
	}
}

func TestStop_IgnoresLaterCalls(t *testing.T) {
	d := New()
	var calls atomic.Int32
	d.Call("k", 20*time.Millisecond, func() { calls.Add(1) })
	d.Stop()
	d.Call("k", time.Millisecond, func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d after Stop, want 0", calls.Load())
	}
	if d.Pending("k") {
		t.Error("Pending = true after Stop")
	}
}
