package preload

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWarmSettlesOnSuccessAndFailure(t *testing.T) {
	m := NewManager(time.Second)

	loadErr := errors.New("image decode failed")
	done := make(chan []Result, 1)
	m.Warm([]string{"/media/a.jpg", "/media/b.jpg"}, func(url string) error {
		if url == "/media/b.jpg" {
			return loadErr
		}
		return nil
	}, func(results []Result) {
		done <- results
	})

	select {
	case results := <-done:
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].Err != nil {
			t.Errorf("first load should succeed, got %v", results[0].Err)
		}
		if !errors.Is(results[1].Err, loadErr) {
			t.Errorf("second load error = %v, want %v", results[1].Err, loadErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("warm-up never settled")
	}
}

func TestWarmSettlesOnHungLoader(t *testing.T) {
	m := NewManager(20 * time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	done := make(chan []Result, 1)
	m.Warm([]string{"/media/slow.mp4"}, func(url string) error {
		<-block
		return nil
	}, func(results []Result) {
		done <- results
	})

	select {
	case results := <-done:
		if !errors.Is(results[0].Err, ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", results[0].Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hung loader left the warm-up pending")
	}
}

func TestInvalidateDiscardsLateCompletion(t *testing.T) {
	m := NewManager(time.Second)

	release := make(chan struct{})
	var mu sync.Mutex
	applied := false
	m.Warm([]string{"/media/a.mp3"}, func(url string) error {
		<-release
		return nil
	}, func(results []Result) {
		mu.Lock()
		applied = true
		mu.Unlock()
	})

	// The track changes while the preload is still in flight.
	m.Invalidate()
	close(release)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if applied {
		t.Fatal("late completion for a stale track was applied")
	}
}
