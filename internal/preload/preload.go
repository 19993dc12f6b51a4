package preload

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

var ErrTimeout = errors.New("preload timed out")

type Loader func(url string) error

type Result struct {
	URL string
	Err error
}

// Manager warms media (audio, images, viewer scenes) ahead of use. Every
// warm-up settles: loads race a fixed timeout so a hung fetch can never leave
// the loading state machine stuck.
type Manager struct {
	clk     clock.Clock
	timeout time.Duration

	mu    sync.Mutex
	epoch int
}

type Option func(*Manager)

func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clk = clk }
}

func NewManager(timeout time.Duration, opts ...Option) *Manager {
	m := &Manager{clk: clock.New(), timeout: timeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Invalidate discards the side effects of in-flight warm-ups: a late
// completion for a track that is no longer current is dropped, not applied.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()
}

// Warm loads every URL concurrently, each racing the timeout. done runs once
// with one settled result per URL, unless Invalidate ran in between.
func (m *Manager) Warm(urls []string, load Loader, done func([]Result)) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	go func() {
		results := make([]Result, len(urls))
		var wg sync.WaitGroup
		for i, u := range urls {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				errc := make(chan error, 1)
				go func() { errc <- load(u) }()
				select {
				case err := <-errc:
					results[i] = Result{URL: u, Err: err}
				case <-m.clk.After(m.timeout):
					results[i] = Result{URL: u, Err: ErrTimeout}
				}
				if results[i].Err != nil {
					log.Printf("preload: %s: %v", u, results[i].Err)
				}
			}(i, u)
		}
		wg.Wait()

		m.mu.Lock()
		stale := epoch != m.epoch
		m.mu.Unlock()
		if stale || done == nil {
			return
		}
		done(results)
	}()
}
