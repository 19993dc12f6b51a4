package tour

// Track is one stop of a narrated walking tour: an audio narration, an
// optional 360 video for the immersive mode, and gallery images.
type Track struct {
	Title    string   `json:"title"`
	AudioURL string   `json:"audioUrl"`
	VideoURL string   `json:"videoUrl,omitempty"`
	Images   []string `json:"images,omitempty"`
}

// IsXR reports whether the track carries immersive 360 content.
func (t Track) IsXR() bool { return t.VideoURL != "" }

type Tour struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Tracks []Track `json:"tracks"`
}
