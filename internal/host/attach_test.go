package host

import (
	"net/url"
	"testing"
)

func TestAttachURL(t *testing.T) {
	raw := AttachURL("/media/pier-360.mp4", AttachOptions{Origin: "https://tour.example"})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("attach URL does not parse: %v", err)
	}
	if u.Path != ViewerPagePath {
		t.Errorf("path = %s, want %s", u.Path, ViewerPagePath)
	}
	q := u.Query()
	if q.Get("video") != "/media/pier-360.mp4" {
		t.Errorf("video = %q", q.Get("video"))
	}
	if q.Get("origin") != "https://tour.example" {
		t.Errorf("origin = %q", q.Get("origin"))
	}
	if q.Get("autoPreload") != "true" {
		t.Errorf("autoPreload = %q", q.Get("autoPreload"))
	}
	if q.Has("preloadOnly") || q.Has("embedded") {
		t.Error("preload-only params set on a regular attach")
	}
}

func TestAttachURLPreloadOnly(t *testing.T) {
	raw := AttachURL("/media/pier-360.mp4", AttachOptions{Origin: "https://tour.example", PreloadOnly: true})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("attach URL does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("embedded") != "true" || q.Get("preloadOnly") != "true" {
		t.Errorf("preload params = embedded:%q preloadOnly:%q", q.Get("embedded"), q.Get("preloadOnly"))
	}
}
