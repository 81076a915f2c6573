package app_test

import (
	"testing"
	"time"

	"github.com/MrWong99/lingualert/internal/app"
	"github.com/MrWong99/lingualert/internal/recording"
)

func TestStash_PutGetDelete(t *testing.T) {
	t.Parallel()
	s := app.NewStash(time.Minute)
	defer s.Close()

	s.Put(nil)
	s.Put(&recording.Result{})
	if s.Len() != 0 {
		t.Errorf("Len() = %d after invalid puts, want 0", s.Len())
	}

	r := &recording.Result{ID: "rec-1", Transcript: "help"}
	s.Put(r)
	got, ok := s.Get("rec-1")
	if !ok || got != r {
		t.Fatalf("Get = %v, %v; want the stored result", got, ok)
	}
	s.Delete("rec-1")
	if _, ok := s.Get("rec-1"); ok {
		t.Error("Get after Delete found the result")
	}
}

func TestStash_Expiry(t *testing.T) {
	t.Parallel()
	s := app.NewStash(20 * time.Millisecond)
	defer s.Close()

	s.Put(&recording.Result{ID: "a"})
	s.Put(&recording.Result{ID: "b"})
	time.Sleep(40 * time.Millisecond)

	if _, ok := s.Get("a"); ok {
		t.Error("Get returned an expired result")
	}
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStash_SetTTL(t *testing.T) {
	t.Parallel()
	s := app.NewStash(20 * time.Millisecond)
	defer s.Close()

	s.SetTTL(time.Hour)
	s.Put(&recording.Result{ID: "a"})
	time.Sleep(40 * time.Millisecond)
	if _, ok := s.Get("a"); !ok {
		t.Error("result expired under the longer TTL")
	}
	if n := s.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d, want 0", n)
	}
}

func TestStash_CloseIdempotent(t *testing.T) {
	t.Parallel()
	s := app.NewStash(0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
