package host

import "net/url"

// ViewerPagePath is the local static page hosting the 360 rendering engine.
const ViewerPagePath = "/viewer/index.html"

// Sandbox and feature permissions granted to the viewer iframe. The host
// never escalates beyond what the viewer needs.
const (
	SandboxFlags       = "allow-scripts allow-same-origin"
	FeaturePermissions = "accelerometer; gyroscope; camera; microphone"
)

type AttachOptions struct {
	// Origin is the host's own origin, passed so the viewer can validate its
	// outbound messages against it.
	Origin string

	// PreloadOnly marks an off-screen hidden iframe warmed ahead of use.
	PreloadOnly bool
}

// AttachURL builds the iframe source for a given video.
func AttachURL(videoURL string, opts AttachOptions) string {
	q := url.Values{}
	q.Set("video", videoURL)
	q.Set("origin", opts.Origin)
	q.Set("autoPreload", "true")
	if opts.PreloadOnly {
		q.Set("embedded", "true")
		q.Set("preloadOnly", "true")
	}
	return ViewerPagePath + "?" + q.Encode()
}
