package editor

import (
	"github.com/Shurtu-gal/studio/internal/bus"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/settings"
)

func (m *Manager) route() {
	m.unsubs = append(m.unsubs,
		bus.On(m.bus, m.onResourceRemoved),
		bus.On(m.bus, m.onResourceUpdated),
		bus.On(m.bus, m.onActiveTabChanged),
		bus.On(m.bus, func(ev bus.DocumentAnalyzed) {
			m.ApplyDiagnostics(ev.URI, ev.Diagnostics)
		}),
		bus.On(m.bus, func(ev bus.DocumentUpdated) {
			m.ApplyDiagnostics(ev.URI, ev.Diagnostics)
		}),
		bus.On(m.bus, m.onDocumentRemoved),
		bus.On(m.bus, m.onSettingsChanged),
	)
}

func (m *Manager) onResourceRemoved(ev bus.ResourceRemoved) {
	m.Remove(ev.ID)
}

// onResourceUpdated pushes content changed outside the editor into the live
// buffer, if there is one.
func (m *Manager) onResourceUpdated(ev bus.ResourceUpdated) {
	if ev.Origin == string(registry.OriginEditor) {
		return
	}
	h, ok := m.handles.peek(ev.ID)
	if !ok {
		return
	}
	res, ok := m.resources.Resource(ev.ID)
	if !ok {
		return
	}
	if m.widget.Value(h) != res.Content {
		m.widget.SetValue(h, res.Content)
	}
}

func (m *Manager) onActiveTabChanged(ev bus.ActiveTabChanged) {
	if ev.Kind != bus.TabEditor {
		return
	}
	m.Switch(ev.ResourceID)
}

func (m *Manager) onDocumentRemoved(ev bus.DocumentRemoved) {
	id, ok := m.resources.Lookup(ev.URI)
	if !ok {
		// Already gone from the registry; find it by the uri it was applied under.
		id, ok = m.decorations.lookup(ev.URI)
		if !ok {
			return
		}
	}
	m.decorations.clear(id)
}

func (m *Manager) onSettingsChanged(ev bus.SettingsChanged) {
	if !settings.GovernanceChanged(ev.Previous, ev.Current) {
		return
	}
	log.Debugf("governance settings changed, resubscribing")
	m.sync.resubscribe()
}
