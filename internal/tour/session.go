package tour

import (
	"xrtour/internal/channel"
	"xrtour/internal/host"
	"xrtour/internal/preload"
	"xrtour/internal/protocol"
)

// Session pairs one host controller with one (optional) viewer iframe and
// one host page. Readiness and health state live in the controller and are
// discarded with it; the session itself lives for the browser session.
type Session struct {
	ID    string
	Token string

	tour       *Tour
	ch         *channel.Channel
	controller *host.Controller
	media      *mediaBridge
	preloader  *preload.Manager
	loader     preload.Loader
}

func (s *Session) Tour() *Tour { return s.tour }

func (s *Session) Controller() *host.Controller { return s.controller }

// BindViewer wires a connected viewer's transport into the message channel.
func (s *Session) BindViewer(t channel.Transport) {
	s.ch.SetTransport(t)
}

// ReleaseViewer drops the transport if it is still the bound one, so a
// reconnect that already re-bound is not clobbered by the old socket's
// teardown.
func (s *Session) ReleaseViewer(t channel.Transport) {
	s.ch.ReleaseTransport(t)
}

// DispatchViewer feeds a raw inbound frame from the viewer socket into the
// channel's filtering path.
func (s *Session) DispatchViewer(data []byte) {
	s.ch.Dispatch(data)
}

func (s *Session) BindMedia(t channel.Transport)    { s.media.Bind(t) }
func (s *Session) ReleaseMedia(t channel.Transport) { s.media.Release(t) }

// HandleMediaEvent applies an audio element event reported by the host page.
func (s *Session) HandleMediaEvent(ev MediaEvent) {
	switch ev.Event {
	case "rejected":
		s.controller.PlayRejected()
	case "timeupdate", "seeked":
		s.controller.TimeUpdate(ev.Seconds)
	case "loadedmetadata":
		s.controller.MetadataLoaded(ev.Duration)
	case "ended":
		s.controller.Ended()
	}
}

// AttachViewer starts the handshake for the current track's 360 content.
func (s *Session) AttachViewer() error {
	playback := s.controller.Playback()
	track, err := s.trackAt(playback.TrackIndex)
	if err != nil {
		return err
	}
	if !track.IsXR() {
		return ErrNoXRContent
	}
	s.controller.Attach(track.VideoURL)
	return nil
}

func (s *Session) DetachViewer() {
	s.controller.Detach()
}

// SelectTrack switches the session to another track. Tracks without 360
// content tear the viewer handshake down via the controller. In-flight
// warm-ups for the old track are invalidated before the new one starts.
func (s *Session) SelectTrack(index int) error {
	track, err := s.trackAt(index)
	if err != nil {
		return err
	}
	s.preloader.Invalidate()
	s.controller.ChangeTrack(index, track.VideoURL)
	urls := append([]string{track.AudioURL}, track.Images...)
	s.preloader.Warm(urls, s.loader, nil)
	return nil
}

func (s *Session) SetOrientationPermission(p protocol.OrientationPermission) {
	s.controller.SetOrientationPermission(p)
}

func (s *Session) trackAt(index int) (Track, error) {
	if index < 0 || index >= len(s.tour.Tracks) {
		return Track{}, ErrTrackOutOfRange
	}
	return s.tour.Tracks[index], nil
}

type SessionState struct {
	SessionID  string        `json:"sessionId"`
	TourID     string        `json:"tourId"`
	TrackCount int           `json:"trackCount"`
	State      host.Snapshot `json:"state"`
}

func (s *Session) State() SessionState {
	return SessionState{
		SessionID:  s.ID,
		TourID:     s.tour.ID,
		TrackCount: len(s.tour.Tracks),
		State:      s.controller.Snapshot(),
	}
}
