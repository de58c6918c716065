package editor

// handleCache owns the live buffers: one per resource id, created on first
// access and disposed exactly once on removal.
type handleCache struct {
	widget    Widget
	resources Resources
	handles   map[string]Handle
	creating  map[string]struct{}
	// created runs after a new handle has been cached.
	created func(id string, h Handle)
}

func newHandleCache(widget Widget, resources Resources) *handleCache {
	return &handleCache{
		widget:    widget,
		resources: resources,
		handles:   make(map[string]Handle),
		creating:  make(map[string]struct{}),
	}
}

// peek returns the cached handle without creating one.
func (c *handleCache) peek(id string) (Handle, bool) {
	h, ok := c.handles[id]
	return h, ok
}

// get returns the handle for id, creating it from the registry if absent.
func (c *handleCache) get(id string) (Handle, bool) {
	if h, ok := c.handles[id]; ok {
		return h, true
	}
	if _, busy := c.creating[id]; busy {
		log.Debugf("re-entrant buffer creation for %s ignored", id)
		return nil, false
	}

	res, ok := c.resources.Resource(id)
	if !ok {
		log.Debugf("no resource %s, not creating a buffer", id)
		return nil, false
	}

	c.creating[id] = struct{}{}
	h, err := c.widget.CreateBuffer(res.URI, res.Language, res.Content)
	delete(c.creating, id)
	if err != nil {
		log.Warningf("failed to create buffer for %s: %v", id, err)
		return nil, false
	}

	// A nested event may have cached a handle while we were creating ours.
	if existing, ok := c.handles[id]; ok {
		c.widget.DisposeBuffer(h)
		return existing, true
	}

	c.handles[id] = h
	log.Debugf("created buffer for %s", id)
	if c.created != nil {
		c.created(id, h)
	}
	return h, true
}

// remove disposes and evicts the handle for id. Unknown ids are ignored.
func (c *handleCache) remove(id string) bool {
	h, ok := c.handles[id]
	if !ok {
		return false
	}
	delete(c.handles, id)
	c.widget.DisposeBuffer(h)
	log.Debugf("disposed buffer for %s", id)
	return true
}

// ids returns the cached resource ids.
func (c *handleCache) ids() []string {
	ids := make([]string, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	return ids
}

func (c *handleCache) closeAll() {
	for id := range c.handles {
		c.remove(id)
	}
}
