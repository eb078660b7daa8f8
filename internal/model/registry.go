package model

import (
	"sort"
	"sync"
)

// Registry issues minute ids and remembers every speaker label seen. A
// Registry is owned by one document and handed to the constructors above.
type Registry struct {
	mu       sync.Mutex
	maxID    int
	speakers map[string]struct{}
}

// NewRegistry returns an empty registry whose first minute id is 0.
func NewRegistry() *Registry {
	return &Registry{maxID: -1, speakers: make(map[string]struct{})}
}

// NextMinuteID returns a never-issued id.
func (r *Registry) NextMinuteID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxID++
	return r.maxID
}

// ObserveMinuteID raises the high-water mark to id.
func (r *Registry) ObserveMinuteID(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id > r.maxID {
		r.maxID = id
	}
}

// AddSpeaker records a speaker label for autocompletion.
func (r *Registry) AddSpeaker(speaker string) {
	if speaker == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speakers[speaker] = struct{}{}
}

// Speakers returns all recorded labels in sorted order.
func (r *Registry) Speakers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.speakers))
	for s := range r.speakers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
