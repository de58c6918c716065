// Package registry owns the resource records the editor mirrors.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Shurtu-gal/studio/internal/bus"
)

type Origin string

const (
	OriginEditor Origin = "editor"
	OriginImport Origin = "import"
	OriginClient Origin = "client"
)

// Resource is one document of the workspace. ID is the unique key,
// URI defaults to ID.
type Resource struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Language string `json:"language"`
	Content  string `json:"content"`
	Origin   Origin `json:"origin"`
	Version  int    `json:"version"`
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Content  *string
	Language *string
	Origin   Origin
}

var (
	ErrNotFound = errors.New("registry: resource not found")
	ErrExists   = errors.New("registry: resource already exists")
	ErrNoID     = errors.New("registry: resource has no id")
)

type Publisher interface {
	Publish(ev bus.Event)
}

type Registry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	byURI     map[string]string
	publisher Publisher
}

// New creates an empty registry. publisher may be nil.
func New(publisher Publisher) *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
		byURI:     make(map[string]string),
		publisher: publisher,
	}
}

func (r *Registry) publish(ev bus.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}
}

// Create adds a new resource with version 1.
func (r *Registry) Create(res Resource) error {
	if res.ID == "" {
		return ErrNoID
	}
	if res.URI == "" {
		res.URI = res.ID
	}
	if res.Language == "" {
		res.Language = "yaml"
	}
	res.Version = 1

	r.mu.Lock()
	if _, exists := r.resources[res.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, res.ID)
	}
	r.resources[res.ID] = &res
	r.byURI[res.URI] = res.ID
	r.mu.Unlock()

	r.publish(bus.ResourceCreated{ID: res.ID, URI: res.URI})
	return nil
}

// Upsert creates the resource or replaces its content and language.
func (r *Registry) Upsert(res Resource) error {
	if _, ok := r.Get(res.ID); !ok {
		return r.Create(res)
	}
	patch := Patch{Content: &res.Content, Origin: res.Origin}
	if res.Language != "" {
		patch.Language = &res.Language
	}
	return r.Update(res.ID, patch)
}

// Get returns a copy of the resource.
func (r *Registry) Get(id string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return Resource{}, false
	}
	return *res, true
}

// Resource is Get under the name the editor core expects.
func (r *Registry) Resource(id string) (Resource, bool) {
	return r.Get(id)
}

// Lookup resolves a URI to its resource id.
func (r *Registry) Lookup(uri string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURI[uri]
	return id, ok
}

// Update applies patch. A patch that changes nothing does not publish.
func (r *Registry) Update(id string, patch Patch) error {
	r.mu.Lock()
	res, ok := r.resources[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	changed := false
	if patch.Content != nil && *patch.Content != res.Content {
		res.Content = *patch.Content
		changed = true
	}
	if patch.Language != nil && *patch.Language != res.Language {
		res.Language = *patch.Language
		changed = true
	}
	if !changed {
		r.mu.Unlock()
		return nil
	}
	if patch.Origin != "" {
		res.Origin = patch.Origin
	}
	res.Version++
	ev := bus.ResourceUpdated{ID: res.ID, URI: res.URI, Origin: string(res.Origin), Version: res.Version}
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

// Remove deletes the resource and publishes the removal.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	res, ok := r.resources[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.resources, id)
	delete(r.byURI, res.URI)
	r.mu.Unlock()

	r.publish(bus.ResourceRemoved{ID: res.ID, URI: res.URI})
	return nil
}

// List returns copies of all resources sorted by id.
func (r *Registry) List() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		result = append(result, *res)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
