package tour

import (
	"encoding/json"
	"errors"
	"sync"

	"xrtour/internal/channel"
)

var ErrNoMediaBridge = errors.New("no media transport bound")

// MediaCommand is sent to the host page, which applies it to its audio
// element.
type MediaCommand struct {
	Action  string  `json:"action"` // play, pause, seek, volume
	Seconds float64 `json:"seconds,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
}

// MediaEvent mirrors an audio element event reported by the host page.
type MediaEvent struct {
	Event    string  `json:"event"` // rejected, timeupdate, loadedmetadata, ended, seeked
	Seconds  float64 `json:"seconds,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// mediaBridge adapts the host page's audio element to host.Player. Play is
// strict: with no page listening the play cannot start, which the controller
// treats as a rejected auto-play. The remaining intents are idempotent and
// best-effort.
type mediaBridge struct {
	mu        sync.RWMutex
	transport channel.Transport
}

func (b *mediaBridge) Bind(t channel.Transport) {
	b.mu.Lock()
	b.transport = t
	b.mu.Unlock()
}

func (b *mediaBridge) Release(t channel.Transport) {
	b.mu.Lock()
	if b.transport == t {
		b.transport = nil
	}
	b.mu.Unlock()
}

func (b *mediaBridge) send(cmd MediaCommand) error {
	b.mu.RLock()
	transport := b.transport
	b.mu.RUnlock()
	if transport == nil {
		return ErrNoMediaBridge
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return transport.Send(data)
}

func (b *mediaBridge) Play() error {
	return b.send(MediaCommand{Action: "play"})
}

func (b *mediaBridge) Pause() error {
	_ = b.send(MediaCommand{Action: "pause"})
	return nil
}

func (b *mediaBridge) Seek(seconds float64) error {
	_ = b.send(MediaCommand{Action: "seek", Seconds: seconds})
	return nil
}

func (b *mediaBridge) SetVolume(volume float64, muted bool) error {
	_ = b.send(MediaCommand{Action: "volume", Volume: volume, Muted: muted})
	return nil
}
