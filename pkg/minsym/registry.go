package minsym

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Registry is the ordered set of loaded images. Lookups iterate images in
// registration order; that order decides ties between images.
type Registry struct {
	mu      sync.RWMutex
	images  []*Image
	metrics *Metrics
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{metrics: metrics}
}

func (r *Registry) Add(img *Image) error {
	if img == nil {
		return ErrNoImage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if lo.Contains(r.images, img) {
		return fmt.Errorf("add %s: %w", img.name, ErrImageRegistered)
	}
	r.images = append(r.images, img)
	return nil
}

// Remove unloads img. Its table must not be in use by a running lookup.
func (r *Registry) Remove(img *Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := lo.IndexOf(r.images, img)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", img.name, ErrImageNotFound)
	}
	r.images = append(r.images[:i:i], r.images[i+1:]...)
	return nil
}

// Find returns the first image registered under name.
func (r *Registry) Find(name string) (*Image, bool) {
	return lo.Find(r.Images(), func(img *Image) bool { return img.name == name })
}

// Images returns a snapshot of the registered images in order.
func (r *Registry) Images() []*Image {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Image(nil), r.images...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.images)
}
