package editor_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Shurtu-gal/studio/internal/bus"
	"github.com/Shurtu-gal/studio/internal/editor"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/settings"
)

type fakeBuffer struct {
	uri       string
	language  string
	content   string
	disposed  bool
	listeners map[int]func()
	nextSub   int
}

func (b *fakeBuffer) URI() string { return b.uri }

type fakeSubscription struct {
	buffer *fakeBuffer
	id     int
}

func (s *fakeSubscription) Dispose() { delete(s.buffer.listeners, s.id) }

// fakeWidget records what the core asks of it.
type fakeWidget struct {
	buffers     []*fakeBuffer
	bound       *fakeBuffer
	view        editor.ViewState
	restoreErr  error
	focused     int
	markers     map[string][]editor.Marker
	decorations map[*fakeBuffer]map[editor.DecorationHandle]editor.Decoration
	nextHandle  int
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{
		markers:     make(map[string][]editor.Marker),
		decorations: make(map[*fakeBuffer]map[editor.DecorationHandle]editor.Decoration),
	}
}

func (w *fakeWidget) CreateBuffer(uri, language, content string) (editor.Handle, error) {
	b := &fakeBuffer{uri: uri, language: language, content: content, listeners: make(map[int]func())}
	w.buffers = append(w.buffers, b)
	return b, nil
}

func (w *fakeWidget) DisposeBuffer(h editor.Handle) {
	b := h.(*fakeBuffer)
	b.disposed = true
	delete(w.decorations, b)
	if w.bound == b {
		w.bound = nil
	}
}

func (w *fakeWidget) Value(h editor.Handle) string { return h.(*fakeBuffer).content }

func (w *fakeWidget) SetValue(h editor.Handle, text string) {
	w.edit(h.(*fakeBuffer), text)
}

// edit changes the content and notifies listeners like a keystroke does.
func (w *fakeWidget) edit(b *fakeBuffer, text string) {
	b.content = text
	for _, cb := range b.listeners {
		cb()
	}
}

func (w *fakeWidget) BindActive(h editor.Handle) {
	w.bound = h.(*fakeBuffer)
	w.view = editor.ViewState{}
}

func (w *fakeWidget) Focus() { w.focused++ }

func (w *fakeWidget) SaveViewState() (editor.ViewState, bool) {
	if w.bound == nil {
		return editor.ViewState{}, false
	}
	return w.view, true
}

func (w *fakeWidget) RestoreViewState(vs editor.ViewState) error {
	if w.restoreErr != nil {
		return w.restoreErr
	}
	w.view = vs
	return nil
}

func (w *fakeWidget) OnContentChanged(h editor.Handle, cb func()) editor.Subscription {
	b := h.(*fakeBuffer)
	b.nextSub++
	b.listeners[b.nextSub] = cb
	return &fakeSubscription{buffer: b, id: b.nextSub}
}

func (w *fakeWidget) SetMarkers(uri string, markers []editor.Marker) {
	if len(markers) == 0 {
		delete(w.markers, uri)
		return
	}
	w.markers[uri] = append([]editor.Marker(nil), markers...)
}

func (w *fakeWidget) ApplyDecorationDelta(h editor.Handle, previous []editor.DecorationHandle, next []editor.Decoration) []editor.DecorationHandle {
	b := h.(*fakeBuffer)
	installed, ok := w.decorations[b]
	if !ok {
		installed = make(map[editor.DecorationHandle]editor.Decoration)
		w.decorations[b] = installed
	}
	for _, p := range previous {
		delete(installed, p)
	}
	handles := make([]editor.DecorationHandle, 0, len(next))
	for _, d := range next {
		w.nextHandle++
		dh := editor.DecorationHandle(fmt.Sprintf("deco-%d", w.nextHandle))
		installed[dh] = d
		handles = append(handles, dh)
	}
	return handles
}

// visible returns the decorations installed on b sorted by id.
func (w *fakeWidget) visible(b *fakeBuffer) []editor.Decoration {
	var result []editor.Decoration
	for _, d := range w.decorations[b] {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires timers synchronously from Advance.
type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) editor.Timer {
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

type analysisCall struct {
	uri     string
	content string
	at      time.Duration
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	clock *fakeClock
	calls []analysisCall
}

func (a *fakeAnalyzer) Analyze(uri, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, analysisCall{uri: uri, content: content, at: a.clock.now})
}

func (a *fakeAnalyzer) Calls() []analysisCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]analysisCall(nil), a.calls...)
}

type staticSettings struct {
	current settings.Settings
}

func (s *staticSettings) Get() settings.Settings { return s.current }

type fakePersistence struct {
	values map[string]string
}

func (p *fakePersistence) Set(_ context.Context, key, value string) error {
	p.values[key] = value
	return nil
}

type fixture struct {
	bus      *bus.Bus
	registry *registry.Registry
	widget   *fakeWidget
	clock    *fakeClock
	analyzer *fakeAnalyzer
	settings *staticSettings
	persist  *fakePersistence
	manager  *editor.Manager
}

func newFixture(t *testing.T, resources ...registry.Resource) *fixture {
	t.Helper()

	f := &fixture{
		bus:      bus.New(),
		widget:   newFakeWidget(),
		clock:    &fakeClock{},
		settings: &staticSettings{current: settings.Default()},
		persist:  &fakePersistence{values: make(map[string]string)},
	}
	f.settings.current.Editor.SavingDelay = 300
	f.registry = registry.New(f.bus)
	f.analyzer = &fakeAnalyzer{clock: f.clock}

	for _, res := range resources {
		if err := f.registry.Create(res); err != nil {
			t.Fatalf("failed to create %s: %v", res.ID, err)
		}
	}

	f.manager = editor.NewManager(editor.Config{
		Widget:    f.widget,
		Resources: f.registry,
		Analyzer:  f.analyzer,
		Settings:  f.settings,
		Bus:       f.bus,
		Store:     f.persist,
		Clock:     f.clock,
	})
	f.manager.Init()
	t.Cleanup(f.manager.Close)
	return f
}

func (f *fixture) buffer(t *testing.T, id string) *fakeBuffer {
	t.Helper()
	h, ok := f.manager.Handle(id)
	if !ok {
		t.Fatalf("no handle for %s", id)
	}
	return h.(*fakeBuffer)
}
