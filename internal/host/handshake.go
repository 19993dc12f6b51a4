package host

import (
	"encoding/json"

	"xrtour/internal/protocol"
)

type HandshakeState int

const (
	Detached HandshakeState = iota
	Attaching
	AwaitingReady
	Ready
	SceneReady
	MaterialReady
	FullyReady
)

func (s HandshakeState) String() string {
	switch s {
	case Detached:
		return "detached"
	case Attaching:
		return "attaching"
	case AwaitingReady:
		return "awaiting-ready"
	case Ready:
		return "ready"
	case SceneReady:
		return "scene-ready"
	case MaterialReady:
		return "material-ready"
	case FullyReady:
		return "fully-ready"
	default:
		return "unknown"
	}
}

func (c *Controller) HandshakeState() HandshakeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeLocked()
}

func (c *Controller) handshakeLocked() HandshakeState {
	// fullyReady wins over the raw phase: the forced fallback can set it
	// while the viewer still owes its ready signal.
	if c.fullyReady {
		return FullyReady
	}
	if c.phase != Ready {
		return c.phase
	}
	switch {
	case c.sceneReady:
		return SceneReady
	case c.materialReady:
		return MaterialReady
	default:
		return Ready
	}
}

func (c *Controller) handleMessage(env protocol.InboundEnvelope) {
	switch env.Type {
	case protocol.TypeReady:
		c.handleReady()
	case protocol.TypeSceneReady:
		c.handleSceneReady()
	case protocol.TypeMaterialReady:
		c.handleMaterialReady()
	case protocol.TypeLoaded:
		c.handleLoaded(env.Payload)
	case protocol.TypeSeek:
		c.handleViewerSeek(env.Payload)
	case protocol.TypeError:
		c.handleViewerError(env.Payload)
	case protocol.TypeBuffering:
		c.handleBuffering(env.Payload)
	case protocol.TypeFOVChange:
		c.handleFOVChange(env.Payload)
	case protocol.TypeHeartbeatResponse:
		c.markHeartbeatAck()
	}
}

// handleReady pushes the full playback context exactly once per attachment
// cycle; a duplicate ready is ignored until the next teardown.
func (c *Controller) handleReady() {
	c.mu.Lock()
	if c.phase != AwaitingReady {
		c.mu.Unlock()
		return
	}
	c.phase = Ready
	init := protocol.InitPayload{
		VideoURL:                    c.videoURL,
		CurrentTime:                 c.playback.CurrentTime,
		IsPlaying:                   c.playback.IsPlaying,
		IsMuted:                     c.playback.IsMuted,
		Volume:                      c.playback.Volume,
		DeviceOrientationPermission: c.orientation,
	}
	c.connected = true
	c.lastAck = c.clk.Now()
	c.startHealthLocked()
	c.mu.Unlock()
	c.ch.Send(protocol.TypeInit, init)
}

func (c *Controller) handleSceneReady() {
	c.mu.Lock()
	if c.phase != Ready {
		c.mu.Unlock()
		return
	}
	c.sceneReady = true
	fired := c.maybeFullyReadyLocked()
	c.mu.Unlock()
	if fired {
		c.fullyReadyFired()
	}
}

func (c *Controller) handleMaterialReady() {
	c.mu.Lock()
	if c.phase != Ready {
		c.mu.Unlock()
		return
	}
	c.materialReady = true
	fired := c.maybeFullyReadyLocked()
	c.mu.Unlock()
	if fired {
		c.fullyReadyFired()
	}
}

// forceReady is the fallback path: after the bounded wait both sub-flags are
// forced true and the host proceeds as if FullyReady. The viewer is untrusted
// and must never block the host indefinitely. The raw phase is left alone so
// a late ready still gets its one init, and the health monitor stays off
// until that ready confirms there is a peer to heartbeat.
func (c *Controller) forceReady(epoch int) {
	c.mu.Lock()
	if epoch != c.epoch || c.fullyReady || c.phase == Detached {
		c.mu.Unlock()
		return
	}
	c.sceneReady = true
	c.materialReady = true
	fired := c.maybeFullyReadyLocked()
	c.mu.Unlock()
	if fired {
		c.fullyReadyFired()
	}
}

func (c *Controller) maybeFullyReadyLocked() bool {
	if c.fullyReady || !c.sceneReady || !c.materialReady {
		return false
	}
	c.fullyReady = true
	if c.fallbackTimer != nil {
		c.fallbackTimer.Stop()
		c.fallbackTimer = nil
	}
	return true
}

func (c *Controller) fullyReadyFired() {
	if fn := c.listeners.FullyReady; fn != nil {
		fn()
	}
	c.attemptAutoPlay()
}

// attemptAutoPlay starts playback at most once per track session. A play that
// does not start resets the guard so a later explicit user action can retry.
func (c *Controller) attemptAutoPlay() {
	c.mu.Lock()
	if !c.autoPlay || c.autoPlayAttempted || c.playback.IsPlaying {
		c.mu.Unlock()
		return
	}
	c.autoPlayAttempted = true
	c.mu.Unlock()
	if err := c.Play(); err != nil {
		c.mu.Lock()
		c.autoPlayAttempted = false
		c.mu.Unlock()
	}
}

// handleViewerError surfaces the message to listeners only; it does not
// transition the handshake or playback state machines.
func (c *Controller) handleViewerError(raw json.RawMessage) {
	var payload protocol.ErrorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if fn := c.listeners.ViewerError; fn != nil {
		fn(payload.Error)
	}
}

func (c *Controller) handleBuffering(raw json.RawMessage) {
	var payload protocol.BufferingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if fn := c.listeners.Buffering; fn != nil {
		fn(payload.IsBuffering)
	}
}

func (c *Controller) handleFOVChange(raw json.RawMessage) {
	var payload protocol.FOVChangePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if fn := c.listeners.FOVChange; fn != nil {
		fn(payload.FOV)
	}
}
