package editor

// viewStateCache keeps the last view captured when focus left a resource.
// Entries are plain data.
type viewStateCache struct {
	states map[string]ViewState
}

func newViewStateCache() *viewStateCache {
	return &viewStateCache{states: make(map[string]ViewState)}
}

// save overwrites any previous snapshot for id.
func (c *viewStateCache) save(id string, vs ViewState) {
	c.states[id] = vs
}

func (c *viewStateCache) restore(id string) (ViewState, bool) {
	vs, ok := c.states[id]
	return vs, ok
}

func (c *viewStateCache) forget(id string) {
	delete(c.states, id)
}
