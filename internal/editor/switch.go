package editor

import "errors"

// Switch binds the widget to the buffer of id. It reports whether id is
// active afterwards. An id without a resource leaves the widget untouched.
func (m *Manager) Switch(id string) bool {
	if id == "" {
		return false
	}
	if id == m.active {
		if _, ok := m.handles.peek(id); ok {
			return true
		}
	}

	// Capture the old view before the model swap resets it.
	if m.active != "" {
		if vs, ok := m.widget.SaveViewState(); ok {
			m.views.save(m.active, vs)
		}
	}

	h, ok := m.handles.get(id)
	if !ok {
		return false
	}

	m.widget.BindActive(h)
	m.widget.Focus()

	if vs, ok := m.views.restore(id); ok {
		if err := m.widget.RestoreViewState(vs); err != nil {
			if errors.Is(err, ErrIncompatibleViewState) {
				log.Debugf("view state of %s not restored: %v", id, err)
			} else {
				log.Warningf("view state of %s not restored: %v", id, err)
			}
		}
	}

	m.active = id
	m.sync.bind(id, h)
	log.Debugf("switched to %s", id)
	return true
}
