package tour

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"xrtour/internal/preload"
	"xrtour/internal/protocol"
)

type captureTransport struct {
	sent [][]byte
}

func (t *captureTransport) Send(data []byte) error {
	t.sent = append(t.sent, data)
	return nil
}

func newTestManager() *Manager {
	return NewManager(DefaultRegistry(), WithPreloader(
		preload.NewManager(time.Second),
		func(url string) error { return nil },
	))
}

func TestCreateSession(t *testing.T) {
	manager := newTestManager()

	info, err := manager.CreateSession(CreateOptions{TourID: "harbor-walk", Origin: "https://tour.example"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if info.SessionID == "" {
		t.Error("SessionID should not be empty")
	}
	if info.Token == "" {
		t.Error("Token should not be empty")
	}
	if info.TourID != "harbor-walk" {
		t.Errorf("TourID mismatch: got %s", info.TourID)
	}
	if info.AttachURL == "" {
		t.Error("AttachURL should be set: first harbor-walk track has 360 content")
	}
	if info.State.Handshake != "detached" {
		t.Errorf("new session handshake = %s, want detached", info.State.Handshake)
	}
	if info.State.Playback.IsPlaying {
		t.Error("new session should not be playing")
	}
	if info.State.Playback.CurrentTime != 0 {
		t.Error("new session currentTime should be 0")
	}
}

func TestCreateSessionDefaultsToActiveTour(t *testing.T) {
	manager := newTestManager()

	info, err := manager.CreateSession(CreateOptions{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.TourID != manager.Registry().Active().ID {
		t.Errorf("TourID = %s, want active tour %s", info.TourID, manager.Registry().Active().ID)
	}
}

func TestCreateSessionUnknownTour(t *testing.T) {
	manager := newTestManager()
	_, err := manager.CreateSession(CreateOptions{TourID: "does-not-exist"})
	if !errors.Is(err, ErrTourNotFound) {
		t.Errorf("Expected ErrTourNotFound, got %v", err)
	}
}

func TestLookupSession(t *testing.T) {
	manager := newTestManager()

	info, err := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	session, err := manager.Lookup(info.SessionID, info.Token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if session.ID != info.SessionID {
		t.Error("Session ID mismatch")
	}

	if _, err := manager.Lookup(info.SessionID, "wrong-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
	if _, err := manager.Lookup("missing", info.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetStateUnknownSession(t *testing.T) {
	manager := newTestManager()
	_, err := manager.GetState("missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSelectTrack(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	if err := session.SelectTrack(2); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}
	state := session.State()
	if state.State.Playback.TrackIndex != 2 {
		t.Errorf("trackIndex = %d, want 2", state.State.Playback.TrackIndex)
	}

	if err := session.SelectTrack(99); !errors.Is(err, ErrTrackOutOfRange) {
		t.Errorf("Expected ErrTrackOutOfRange, got %v", err)
	}
	if err := session.SelectTrack(-1); !errors.Is(err, ErrTrackOutOfRange) {
		t.Errorf("Expected ErrTrackOutOfRange, got %v", err)
	}
}

func TestSelectNonXRTrackDetachesViewer(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	if err := session.AttachViewer(); err != nil {
		t.Fatalf("AttachViewer failed: %v", err)
	}
	if got := session.State().State.Handshake; got != "awaiting-ready" {
		t.Fatalf("handshake = %s, want awaiting-ready", got)
	}

	// Track 1 (Fish Market) has no 360 content.
	if err := session.SelectTrack(1); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}
	if got := session.State().State.Handshake; got != "detached" {
		t.Errorf("handshake = %s, want detached after non-XR track", got)
	}
}

func TestAttachViewerRequiresXRContent(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	if err := session.SelectTrack(1); err != nil {
		t.Fatal(err)
	}
	if err := session.AttachViewer(); !errors.Is(err, ErrNoXRContent) {
		t.Errorf("Expected ErrNoXRContent, got %v", err)
	}
}

func TestViewerEnvelopesFlowThroughSession(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	viewer := &captureTransport{}
	session.BindViewer(viewer)
	if err := session.AttachViewer(); err != nil {
		t.Fatal(err)
	}

	ready, _ := json.Marshal(protocol.Envelope{Channel: protocol.ChannelTag, Type: protocol.TypeReady})
	session.DispatchViewer(ready)

	if got := session.State().State.Handshake; got != "ready" {
		t.Fatalf("handshake = %s, want ready", got)
	}
	if len(viewer.sent) == 0 {
		t.Fatal("no init sent to viewer")
	}
	var env protocol.InboundEnvelope
	if err := json.Unmarshal(viewer.sent[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != protocol.TypeInit {
		t.Errorf("first outbound message = %s, want init", env.Type)
	}
}

func TestMediaEventsDriveController(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	session.HandleMediaEvent(MediaEvent{Event: "loadedmetadata", Duration: 212})
	session.HandleMediaEvent(MediaEvent{Event: "timeupdate", Seconds: 17.5})

	playback := session.State().State.Playback
	if playback.Duration != 212 {
		t.Errorf("duration = %v, want 212", playback.Duration)
	}
	if playback.CurrentTime != 17.5 {
		t.Errorf("currentTime = %v, want 17.5", playback.CurrentTime)
	}
}

func TestPlayWithoutMediaBridgeFails(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	if err := session.Controller().Play(); !errors.Is(err, ErrNoMediaBridge) {
		t.Errorf("Expected ErrNoMediaBridge, got %v", err)
	}

	media := &captureTransport{}
	session.BindMedia(media)
	if err := session.Controller().Play(); err != nil {
		t.Fatalf("Play with bound media failed: %v", err)
	}
	if len(media.sent) == 0 {
		t.Fatal("no media command sent")
	}
	var cmd MediaCommand
	if err := json.Unmarshal(media.sent[0], &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Action != "play" {
		t.Errorf("media command = %q, want play", cmd.Action)
	}
}

func TestCleanupSession(t *testing.T) {
	manager := newTestManager()
	info, _ := manager.CreateSession(CreateOptions{TourID: "harbor-walk"})
	session, _ := manager.Lookup(info.SessionID, info.Token)

	manager.CleanupSession(session)

	if _, err := manager.Lookup(info.SessionID, info.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after cleanup, got %v", err)
	}
}

func TestRegistryDevConfig(t *testing.T) {
	registry := DefaultRegistry()

	if got := len(registry.List()); got != 2 {
		t.Fatalf("demo registry has %d tours, want 2", got)
	}
	if err := registry.SetActive("old-town"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if registry.Active().ID != "old-town" {
		t.Errorf("active tour = %s, want old-town", registry.Active().ID)
	}
	if err := registry.SetActive("nope"); !errors.Is(err, ErrTourNotFound) {
		t.Errorf("Expected ErrTourNotFound, got %v", err)
	}
}
