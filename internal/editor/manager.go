// Package editor keeps a text-editing widget consistent with the resource
// registry, the analysis pipeline and the diagnostics it produces.
//
// A Manager is not safe for concurrent use. Every method, and every event
// published on the bus it listens to, must run on the same goroutine; the
// Post function re-enters that goroutine from debounce timers.
package editor

import (
	"github.com/Shurtu-gal/studio/internal/bus"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("studio.editor")

type Config struct {
	Widget    Widget
	Resources Resources
	Analyzer  Analyzer
	Settings  SettingsSource
	Bus       *bus.Bus
	// Store receives autosaved content. Optional.
	Store Persistence
	// Clock defaults to the wall clock.
	Clock Clock
	// Post runs fn on the goroutine that owns the Manager. It defaults to
	// calling fn directly, which is only correct with a synchronous Clock.
	Post func(fn func())
}

type Manager struct {
	widget    Widget
	resources Resources
	bus       *bus.Bus

	handles     *handleCache
	views       *viewStateCache
	decorations *decorationCache
	sync        *synchronizer

	active string
	unsubs []func()
}

func NewManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Post == nil {
		cfg.Post = func(fn func()) { fn() }
	}

	m := &Manager{
		widget:      cfg.Widget,
		resources:   cfg.Resources,
		bus:         cfg.Bus,
		handles:     newHandleCache(cfg.Widget, cfg.Resources),
		views:       newViewStateCache(),
		decorations: newDecorationCache(cfg.Widget),
		sync:        newSynchronizer(cfg),
	}
	m.handles.created = m.decorations.attach
	return m
}

// Init subscribes the manager to the lifecycle events on the bus.
func (m *Manager) Init() {
	if m.bus == nil || len(m.unsubs) > 0 {
		return
	}
	m.route()
	log.Infof("editor core initialized")
}

// Close unsubscribes from the bus, cancels pending flushes and disposes
// every buffer.
func (m *Manager) Close() {
	for _, unsubscribe := range m.unsubs {
		unsubscribe()
	}
	m.unsubs = nil
	m.sync.close()
	for _, id := range m.handles.ids() {
		m.decorations.clear(id)
	}
	m.handles.closeAll()
	m.active = ""
}

// Active returns the id bound to the widget.
func (m *Manager) Active() (string, bool) {
	return m.active, m.active != ""
}

// Handle returns the buffer of id, creating it on first access.
func (m *Manager) Handle(id string) (Handle, bool) {
	return m.handles.get(id)
}

// Value returns the live content of id. Resources without a buffer are read
// from the registry.
func (m *Manager) Value(id string) (string, bool) {
	if h, ok := m.handles.peek(id); ok {
		return m.widget.Value(h), true
	}
	res, ok := m.resources.Resource(id)
	if !ok {
		return "", false
	}
	return res.Content, true
}

// SetValue replaces the content of the buffer of id.
func (m *Manager) SetValue(id, text string) bool {
	h, ok := m.handles.get(id)
	if !ok {
		return false
	}
	if m.widget.Value(h) != text {
		m.widget.SetValue(h, text)
	}
	return true
}

// Open returns the ids that currently have a buffer.
func (m *Manager) Open() []string {
	return m.handles.ids()
}

// ViewState returns the snapshot saved when focus last left id.
func (m *Manager) ViewState(id string) (ViewState, bool) {
	return m.views.restore(id)
}

// Decorations returns the widget handles of the decorations installed on id.
func (m *Manager) Decorations(id string) []DecorationHandle {
	return m.decorations.handles(id)
}

// ApplyDiagnostics replaces the markers and decorations of the resource at
// uri. Diagnostics for unknown resources are dropped.
func (m *Manager) ApplyDiagnostics(uri string, diagnostics []protocol.Diagnostic) {
	id, ok := m.resources.Lookup(uri)
	if !ok {
		log.Debugf("diagnostics for unknown resource %s dropped", uri)
		return
	}
	h, _ := m.handles.peek(id)
	m.decorations.apply(id, uri, h, diagnostics)
}

// Flush sends the content of id to the analyzer without waiting for the
// debounce window.
func (m *Manager) Flush(id string) bool {
	h, ok := m.handles.peek(id)
	if !ok {
		return false
	}
	m.sync.flushNow(id, h)
	return true
}

// Remove drops all state held for id.
func (m *Manager) Remove(id string) {
	m.sync.cancel(id)
	if m.active == id {
		m.sync.unbind()
		m.active = ""
	}
	m.decorations.clear(id)
	m.handles.remove(id)
	m.views.forget(id)
}
