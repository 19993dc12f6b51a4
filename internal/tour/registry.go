package tour

import (
	"sort"
	"sync"
)

// Registry holds the demo content selectable from the developer
// configuration screen. One tour is active at a time.
type Registry struct {
	mu     sync.RWMutex
	tours  map[string]*Tour
	active string
}

func NewRegistry() *Registry {
	return &Registry{tours: make(map[string]*Tour)}
}

func (r *Registry) Register(t *Tour) {
	r.mu.Lock()
	r.tours[t.ID] = t
	if r.active == "" {
		r.active = t.ID
	}
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tours[id]
	if !ok {
		return nil, ErrTourNotFound
	}
	return t, nil
}

func (r *Registry) List() []*Tour {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tours := make([]*Tour, 0, len(r.tours))
	for _, t := range r.tours {
		tours = append(tours, t)
	}
	sort.Slice(tours, func(i, j int) bool { return tours[i].ID < tours[j].ID })
	return tours
}

func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tours[id]; !ok {
		return ErrTourNotFound
	}
	r.active = id
	return nil
}

func (r *Registry) Active() *Tour {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tours[r.active]
}

// DefaultRegistry seeds the demo content used by the developer screen.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Tour{
		ID:    "harbor-walk",
		Title: "Harbor Walk",
		Tracks: []Track{
			{
				Title:    "The Old Pier",
				AudioURL: "/media/harbor/pier.mp3",
				VideoURL: "/media/harbor/pier-360.mp4",
				Images:   []string{"/media/harbor/pier-1.jpg", "/media/harbor/pier-2.jpg"},
			},
			{
				Title:    "Fish Market",
				AudioURL: "/media/harbor/market.mp3",
				Images:   []string{"/media/harbor/market-1.jpg"},
			},
			{
				Title:    "Lighthouse Point",
				AudioURL: "/media/harbor/lighthouse.mp3",
				VideoURL: "/media/harbor/lighthouse-360.mp4",
			},
		},
	})
	r.Register(&Tour{
		ID:    "old-town",
		Title: "Old Town Loop",
		Tracks: []Track{
			{
				Title:    "Town Square",
				AudioURL: "/media/oldtown/square.mp3",
				VideoURL: "/media/oldtown/square-360.mp4",
			},
			{
				Title:    "Clock Tower",
				AudioURL: "/media/oldtown/tower.mp3",
				Images:   []string{"/media/oldtown/tower-1.jpg"},
			},
		},
	})
	return r
}
