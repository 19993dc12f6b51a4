package host

import (
	"encoding/json"

	"xrtour/internal/protocol"
)

// Play starts playback and tells the viewer. Playback-state messages fire on
// state change only; the periodic time-update ticker handles the rest.
func (c *Controller) Play() error {
	c.mu.Lock()
	if c.playback.IsPlaying {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if err := c.player.Play(); err != nil {
		return err
	}
	c.mu.Lock()
	c.playback.IsPlaying = true
	c.startTickerLocked()
	state := c.playbackPayloadLocked()
	c.mu.Unlock()
	return c.ch.Send(protocol.TypePlaybackState, state)
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	if !c.playback.IsPlaying {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if err := c.player.Pause(); err != nil {
		return err
	}
	c.mu.Lock()
	c.playback.IsPlaying = false
	c.stopTickerLocked()
	state := c.playbackPayloadLocked()
	c.mu.Unlock()
	return c.ch.Send(protocol.TypePlaybackState, state)
}

// PlayRejected reports that a deferred play() settled rejected (platform
// auto-play policy). This is expected behavior, not a fault: the auto-play
// guard resets so a later explicit user action can retry, and the viewer gets
// a corrected full-state message.
func (c *Controller) PlayRejected() {
	c.mu.Lock()
	c.playback.IsPlaying = false
	c.stopTickerLocked()
	c.autoPlayAttempted = false
	state := c.playbackPayloadLocked()
	c.mu.Unlock()
	c.ch.Send(protocol.TypePlaybackState, state)
}

// Seek applies a host-initiated seek (scrubber drag, skip buttons) and sends
// the viewer both the new and previous time for its transition animation.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	previous := c.playback.CurrentTime
	c.playback.CurrentTime = seconds
	c.mu.Unlock()
	if err := c.player.Seek(seconds); err != nil {
		return err
	}
	return c.ch.Send(protocol.TypeSeek, protocol.SeekPayload{
		CurrentTime:  seconds,
		PreviousTime: previous,
	})
}

// Skip seeks relative to the current position, clamped to the track bounds.
func (c *Controller) Skip(delta float64) error {
	c.mu.Lock()
	target := c.playback.CurrentTime + delta
	if target < 0 {
		target = 0
	}
	if target > c.playback.Duration {
		target = c.playback.Duration
	}
	c.mu.Unlock()
	return c.Seek(target)
}

func (c *Controller) SetVolume(volume float64, muted bool) error {
	c.mu.Lock()
	c.playback.Volume = volume
	c.playback.IsMuted = muted
	c.mu.Unlock()
	if err := c.player.SetVolume(volume, muted); err != nil {
		return err
	}
	return c.ch.Send(protocol.TypeVolumeChange, protocol.VolumeChangePayload{
		IsMuted: muted,
		Volume:  volume,
	})
}

func (c *Controller) Recenter() error {
	return c.ch.Send(protocol.TypeRecenter, nil)
}

func (c *Controller) Resize(width, height int) error {
	return c.ch.Send(protocol.TypeResize, protocol.ResizePayload{
		Width:  width,
		Height: height,
	})
}

// ChangeTrack resynchronizes the viewer for a new track: sub-readiness flags
// and the one-shot auto-play guard reset, and the track-change message always
// precedes any playback-state traffic for the new track. A track without XR
// content tears the handshake down instead.
func (c *Controller) ChangeTrack(index int, videoURL string) {
	c.mu.Lock()
	c.playback.TrackIndex = index
	c.playback.CurrentTime = 0
	c.playback.Duration = placeholderDuration
	c.durationKnown = false
	c.sceneReady = false
	c.materialReady = false
	c.fullyReady = false
	c.autoPlayAttempted = false
	c.videoURL = videoURL
	if videoURL == "" {
		c.detachLocked()
		c.mu.Unlock()
		return
	}
	if c.fallbackTimer != nil {
		c.fallbackTimer.Stop()
		c.fallbackTimer = nil
	}
	if c.phase != Detached {
		epoch := c.epoch
		c.fallbackTimer = c.clk.AfterFunc(readyTimeout, func() { c.forceReady(epoch) })
	}
	change := protocol.TrackChangePayload{
		VideoURL:    videoURL,
		TrackIndex:  index,
		CurrentTime: 0,
	}
	state := c.playbackPayloadLocked()
	c.mu.Unlock()
	c.ch.Send(protocol.TypeTrackChange, change)
	c.ch.Send(protocol.TypePlaybackState, state)
}

// TimeUpdate mirrors the audio element's timeupdate event. No message is
// sent here; the 10 Hz ticker provides the outbound cadence.
func (c *Controller) TimeUpdate(seconds float64) {
	c.mu.Lock()
	c.playback.CurrentTime = seconds
	c.mu.Unlock()
}

// MetadataLoaded replaces the placeholder duration once the audio element
// knows the real one.
func (c *Controller) MetadataLoaded(duration float64) {
	c.mu.Lock()
	c.playback.Duration = duration
	c.durationKnown = true
	c.mu.Unlock()
}

func (c *Controller) Ended() {
	c.mu.Lock()
	c.playback.IsPlaying = false
	c.stopTickerLocked()
	state := c.playbackPayloadLocked()
	c.mu.Unlock()
	c.ch.Send(protocol.TypePlaybackState, state)
	if fn := c.listeners.Ended; fn != nil {
		fn()
	}
}

// handleLoaded adopts the viewer-reported duration only while the placeholder
// is still in effect; audio metadata wins once known.
func (c *Controller) handleLoaded(raw json.RawMessage) {
	var payload protocol.LoadedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.mu.Lock()
	if !c.durationKnown && payload.Duration > 0 {
		c.playback.Duration = payload.Duration
	}
	c.mu.Unlock()
}

// handleViewerSeek applies a viewer-initiated seek to the authoritative state
// and the audio element. No seek echoes back: the viewer already knows about
// its own request.
func (c *Controller) handleViewerSeek(raw json.RawMessage) {
	var payload protocol.ViewerSeekPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.mu.Lock()
	c.playback.CurrentTime = payload.CurrentTime
	c.mu.Unlock()
	_ = c.player.Seek(payload.CurrentTime)
}

func (c *Controller) startTickerLocked() {
	if c.tickTimer != nil {
		return
	}
	epoch := c.epoch
	c.tickTimer = c.clk.AfterFunc(timeUpdateInterval, func() { c.timeTick(epoch) })
}

func (c *Controller) stopTickerLocked() {
	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
}

func (c *Controller) timeTick(epoch int) {
	c.mu.Lock()
	if epoch != c.epoch || !c.playback.IsPlaying || c.tickTimer == nil {
		c.mu.Unlock()
		return
	}
	c.tickTimer = c.clk.AfterFunc(timeUpdateInterval, func() { c.timeTick(epoch) })
	update := protocol.TimeUpdatePayload{
		CurrentTime: c.playback.CurrentTime,
		Duration:    c.playback.Duration,
		IsPlaying:   c.playback.IsPlaying,
	}
	c.mu.Unlock()
	c.ch.Send(protocol.TypeTimeUpdate, update)
}
