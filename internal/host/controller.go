package host

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"xrtour/internal/channel"
	"xrtour/internal/protocol"
)

const (
	readyTimeout       = 8 * time.Second
	heartbeatInterval  = 5 * time.Second
	stalenessInterval  = 5 * time.Second
	stalenessThreshold = 10 * time.Second
	timeUpdateInterval = 100 * time.Millisecond

	// placeholderDuration stands in until media metadata arrives.
	placeholderDuration = 180.0
)

// Player abstracts the audio element that drives the authoritative timeline.
// Play may be refused synchronously; an asynchronous refusal (platform
// auto-play policy) is reported later through Controller.PlayRejected.
type Player interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume float64, muted bool) error
}

// Listeners receive host-side notifications. All fields are optional.
type Listeners struct {
	FullyReady       func()
	ViewerError      func(message string)
	Buffering        func(isBuffering bool)
	FOVChange        func(fov float64)
	ConnectionChange func(connected bool)
	Ended            func()
}

// PlaybackState is owned by the host and never mutated by the viewer; the
// viewer may only request a seek, which the host applies and owns.
type PlaybackState struct {
	TrackIndex  int     `json:"trackIndex"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	IsPlaying   bool    `json:"isPlaying"`
	IsMuted     bool    `json:"isMuted"`
	Volume      float64 `json:"volume"`
}

type Snapshot struct {
	Playback      PlaybackState                  `json:"playback"`
	Handshake     string                         `json:"handshake"`
	SceneReady    bool                           `json:"sceneReady"`
	MaterialReady bool                           `json:"materialReady"`
	Connected     bool                           `json:"connected"`
	VideoURL      string                         `json:"videoUrl"`
	Orientation   protocol.OrientationPermission `json:"deviceOrientationPermission"`
}

// Controller is the host side of the synchronization protocol: it owns the
// handshake state machine, the playback synchronizer and the connection
// health monitor for a single attached viewer.
type Controller struct {
	mu        sync.Mutex
	clk       clock.Clock
	ch        *channel.Channel
	player    Player
	listeners Listeners

	playback      PlaybackState
	durationKnown bool
	videoURL      string
	orientation   protocol.OrientationPermission

	phase             HandshakeState // Detached, Attaching, AwaitingReady or Ready
	sceneReady        bool
	materialReady     bool
	fullyReady        bool
	autoPlay          bool
	autoPlayAttempted bool

	connected bool
	lastAck   time.Time

	// epoch is bumped on every teardown; timer callbacks capture it and bail
	// out when stale so a late tick can never touch a newer session.
	epoch          int
	fallbackTimer  *clock.Timer
	heartbeatTimer *clock.Timer
	stalenessTimer *clock.Timer
	tickTimer      *clock.Timer
}

type Option func(*Controller)

func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clk = clk }
}

// WithAutoPlay enables the one-shot auto-play attempt on FullyReady
// (preview mode).
func WithAutoPlay() Option {
	return func(c *Controller) { c.autoPlay = true }
}

func WithListeners(listeners Listeners) Option {
	return func(c *Controller) { c.listeners = listeners }
}

func NewController(ch *channel.Channel, player Player, opts ...Option) *Controller {
	c := &Controller{
		clk:    clock.New(),
		ch:     ch,
		player: player,
	}
	c.playback.Duration = placeholderDuration
	c.playback.Volume = 1
	for _, opt := range opts {
		opt(c)
	}
	ch.OnMessage(c.handleMessage)
	return c
}

// Attach marks the viewer iframe source as assigned and starts waiting for
// the viewer's ready signal. The forced-ready fallback is armed here so an
// unresponsive viewer can never stall the host.
func (c *Controller) Attach(videoURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Detached {
		c.detachLocked()
	}
	c.videoURL = videoURL
	c.phase = AwaitingReady // Attaching -> AwaitingReady is immediate
	epoch := c.epoch
	c.fallbackTimer = c.clk.AfterFunc(readyTimeout, func() { c.forceReady(epoch) })
}

// Detach tears the viewer down: all timers cancelled, readiness and health
// state reset. The auto-play guard survives: re-entering XR mode on the same
// track must not replay the auto-play.
func (c *Controller) Detach() {
	c.mu.Lock()
	c.detachLocked()
	c.mu.Unlock()
}

func (c *Controller) detachLocked() {
	c.epoch++
	for _, t := range []*clock.Timer{c.fallbackTimer, c.heartbeatTimer, c.stalenessTimer, c.tickTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.fallbackTimer, c.heartbeatTimer, c.stalenessTimer, c.tickTimer = nil, nil, nil, nil
	c.phase = Detached
	c.sceneReady = false
	c.materialReady = false
	c.fullyReady = false
	c.connected = false
}

func (c *Controller) SetOrientationPermission(p protocol.OrientationPermission) {
	c.mu.Lock()
	c.orientation = p
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Playback:      c.playback,
		Handshake:     c.handshakeLocked().String(),
		SceneReady:    c.sceneReady,
		MaterialReady: c.materialReady,
		Connected:     c.connected,
		VideoURL:      c.videoURL,
		Orientation:   c.orientation,
	}
}

func (c *Controller) Playback() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Controller) playbackPayloadLocked() protocol.PlaybackStatePayload {
	return protocol.PlaybackStatePayload{
		IsPlaying:   c.playback.IsPlaying,
		CurrentTime: c.playback.CurrentTime,
		Duration:    c.playback.Duration,
	}
}
