package protocol

import (
	"encoding/json"
	"time"
)

// ChannelTag scopes envelopes to this host/viewer pairing. Messages carrying
// a different or missing tag are dropped by the channel layer on both sides.
const ChannelTag = "xrtour-sync-v1"

// Host -> Viewer message types.
const (
	TypeInit          = "init"
	TypePlaybackState = "playback-state"
	TypeTimeUpdate    = "time-update"
	TypeSeek          = "seek"
	TypeTrackChange   = "track-change"
	TypeVolumeChange  = "volume-change"
	TypeRecenter      = "recenter"
	TypeResize        = "resize"
	TypeHeartbeat     = "heartbeat"
)

// Viewer -> Host message types. TypeSeek is shared: an inbound seek carries
// only the viewer's requested time.
const (
	TypeReady             = "ready"
	TypeSceneReady        = "scene-ready"
	TypeMaterialReady     = "material-ready"
	TypeLoaded            = "loaded"
	TypeError             = "error"
	TypeBuffering         = "buffering"
	TypeFOVChange         = "fovchange"
	TypeHeartbeatResponse = "heartbeat-response"
)

type Envelope struct {
	Channel   string      `json:"channel"`
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

type InboundEnvelope struct {
	Channel   string          `json:"channel"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// OrientationPermission is the device-orientation permission snapshot,
// obtained once from the platform API and forwarded verbatim to the viewer.
type OrientationPermission struct {
	Granted   bool   `json:"granted"`
	Requested bool   `json:"requested"`
	Supported bool   `json:"supported"`
	Error     string `json:"error,omitempty"`
}

type InitPayload struct {
	VideoURL                    string                `json:"videoUrl"`
	CurrentTime                 float64               `json:"currentTime"`
	IsPlaying                   bool                  `json:"isPlaying"`
	IsMuted                     bool                  `json:"isMuted"`
	Volume                      float64               `json:"volume"`
	DeviceOrientationPermission OrientationPermission `json:"deviceOrientationPermission"`
}

type PlaybackStatePayload struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

type TimeUpdatePayload struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	IsPlaying   bool    `json:"isPlaying"`
}

// SeekPayload carries the previous time so the viewer can animate the jump.
type SeekPayload struct {
	CurrentTime  float64 `json:"currentTime"`
	PreviousTime float64 `json:"previousTime"`
}

type TrackChangePayload struct {
	VideoURL    string  `json:"videoUrl"`
	TrackIndex  int     `json:"trackIndex"`
	CurrentTime float64 `json:"currentTime"`
}

type VolumeChangePayload struct {
	IsMuted bool    `json:"isMuted"`
	Volume  float64 `json:"volume"`
}

type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type LoadedPayload struct {
	Duration float64 `json:"duration"`
	VideoURL string  `json:"videoUrl"`
}

type ViewerSeekPayload struct {
	CurrentTime float64 `json:"currentTime"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type BufferingPayload struct {
	IsBuffering bool `json:"isBuffering"`
}

type FOVChangePayload struct {
	FOV float64 `json:"fov"`
}

func NowMillis() int64 { return time.Now().UnixMilli() }
