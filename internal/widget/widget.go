// Package widget is a headless editing widget. It keeps buffers in memory
// and forwards markers and decorations to sinks such as the LSP client or
// the problems hub.
package widget

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Shurtu-gal/studio/internal/editor"
	"github.com/Shurtu-gal/studio/internal/sitteradapter"
)

// Buffer is one live document. Buffers are compared by pointer.
type Buffer struct {
	uri      string
	language string
	content  string
	disposed bool

	listeners   map[int]func()
	nextID      int
	decorations map[editor.DecorationHandle]installedDecoration
}

// installedDecoration remembers the order decorations were applied in.
type installedDecoration struct {
	editor.Decoration
	seq int
}

func (b *Buffer) URI() string { return b.uri }

func (b *Buffer) Language() string { return b.language }

type MarkerSink interface {
	Markers(uri string, markers []editor.Marker)
}

type DecorationSink interface {
	Decorations(uri string, decorations []editor.Decoration)
}

type subscription struct {
	w  *Widget
	b  *Buffer
	id int
}

func (s *subscription) Dispose() {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	delete(s.b.listeners, s.id)
}

type Widget struct {
	mu      sync.Mutex
	buffers map[*Buffer]struct{}
	bound   *Buffer
	view    editor.ViewState
	focused bool
	markers map[string][]editor.Marker
	next    uint64

	markerSinks     []MarkerSink
	decorationSinks []DecorationSink
}

func New() *Widget {
	return &Widget{
		buffers: make(map[*Buffer]struct{}),
		markers: make(map[string][]editor.Marker),
	}
}

func (w *Widget) AddMarkerSink(s MarkerSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markerSinks = append(w.markerSinks, s)
}

func (w *Widget) AddDecorationSink(s DecorationSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.decorationSinks = append(w.decorationSinks, s)
}

func (w *Widget) buffer(h editor.Handle) (*Buffer, bool) {
	b, ok := h.(*Buffer)
	if !ok || b == nil {
		return nil, false
	}
	_, live := w.buffers[b]
	return b, live
}

func (w *Widget) CreateBuffer(uri, language, content string) (editor.Handle, error) {
	if uri == "" {
		return nil, fmt.Errorf("widget: buffer needs a uri")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	b := &Buffer{
		uri:         uri,
		language:    language,
		content:     content,
		listeners:   make(map[int]func()),
		decorations: make(map[editor.DecorationHandle]installedDecoration),
	}
	w.buffers[b] = struct{}{}
	return b, nil
}

func (w *Widget) DisposeBuffer(h editor.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buffer(h)
	if !ok {
		return
	}
	delete(w.buffers, b)
	b.disposed = true
	b.listeners = make(map[int]func())
	b.decorations = make(map[editor.DecorationHandle]installedDecoration)
	if w.bound == b {
		w.bound = nil
		w.view = editor.ViewState{}
	}
}

func (w *Widget) Value(h editor.Handle) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.buffer(h); ok {
		return b.content
	}
	return ""
}

func (w *Widget) SetValue(h editor.Handle, text string) {
	w.mu.Lock()
	b, ok := w.buffer(h)
	if !ok {
		w.mu.Unlock()
		return
	}
	b.content = text
	w.mu.Unlock()

	w.notify(b)
}

// ApplyChanges applies LSP content changes to h in order and notifies the
// content listeners once.
func (w *Widget) ApplyChanges(h editor.Handle, changes []any) (string, error) {
	w.mu.Lock()
	b, ok := w.buffer(h)
	if !ok {
		w.mu.Unlock()
		return "", fmt.Errorf("widget: unknown buffer")
	}
	content := b.content
	for _, change := range changes {
		content = sitteradapter.ApplyChange(content, change)
	}
	b.content = content
	w.mu.Unlock()

	w.notify(b)
	return content, nil
}

// notify calls the listeners of b outside the lock so they may call back.
func (w *Widget) notify(b *Buffer) {
	w.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	callbacks := make([]func(), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, b.listeners[id])
	}
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// BindActive displays h. The view starts at the top of the document.
func (w *Widget) BindActive(h editor.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffer(h)
	if !ok {
		return
	}
	w.bound = b
	w.view = editor.ViewState{Cursor: editor.Position{Line: 1, Column: 1}}
	w.focused = false
}

func (w *Widget) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = w.bound != nil
}

func (w *Widget) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// Bound returns the displayed buffer.
func (w *Widget) Bound() (editor.Handle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound == nil {
		return nil, false
	}
	return w.bound, true
}

func (w *Widget) SaveViewState() (editor.ViewState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound == nil {
		return editor.ViewState{}, false
	}
	vs := w.view
	vs.Folded = append([]int(nil), w.view.Folded...)
	return vs, true
}

// RestoreViewState rejects snapshots pointing past the end of the bound
// buffer.
func (w *Widget) RestoreViewState(vs editor.ViewState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound == nil {
		return fmt.Errorf("%w: no buffer bound", editor.ErrIncompatibleViewState)
	}
	lines := strings.Count(w.bound.content, "\n") + 1
	if vs.Cursor.Line > lines {
		return fmt.Errorf("%w: cursor line %d of %d", editor.ErrIncompatibleViewState, vs.Cursor.Line, lines)
	}
	w.view = vs
	return nil
}

// MoveCursor changes the view of the bound buffer as a user would.
func (w *Widget) MoveCursor(pos editor.Position, scrollTop int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view.Cursor = pos
	w.view.ScrollTop = scrollTop
}

func (w *Widget) OnContentChanged(h editor.Handle, cb func()) editor.Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffer(h)
	if !ok {
		return &subscription{w: w, b: &Buffer{listeners: map[int]func(){}}}
	}
	b.nextID++
	b.listeners[b.nextID] = cb
	return &subscription{w: w, b: b, id: b.nextID}
}

// Listeners returns the number of live content subscriptions on h.
func (w *Widget) Listeners(h editor.Handle) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.buffer(h); ok {
		return len(b.listeners)
	}
	return 0
}

func (w *Widget) SetMarkers(uri string, markers []editor.Marker) {
	w.mu.Lock()
	if len(markers) == 0 {
		delete(w.markers, uri)
	} else {
		w.markers[uri] = append([]editor.Marker(nil), markers...)
	}
	sinks := append([]MarkerSink(nil), w.markerSinks...)
	w.mu.Unlock()

	for _, s := range sinks {
		s.Markers(uri, markers)
	}
}

func (w *Widget) Markers(uri string) []editor.Marker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]editor.Marker(nil), w.markers[uri]...)
}

// AllMarkers returns a copy of every marker set keyed by uri.
func (w *Widget) AllMarkers() map[string][]editor.Marker {
	w.mu.Lock()
	defer w.mu.Unlock()
	result := make(map[string][]editor.Marker, len(w.markers))
	for uri, markers := range w.markers {
		result[uri] = append([]editor.Marker(nil), markers...)
	}
	return result
}

func (w *Widget) ApplyDecorationDelta(h editor.Handle, previous []editor.DecorationHandle, next []editor.Decoration) []editor.DecorationHandle {
	w.mu.Lock()
	b, ok := w.buffer(h)
	if !ok {
		w.mu.Unlock()
		return nil
	}
	for _, p := range previous {
		delete(b.decorations, p)
	}
	handles := make([]editor.DecorationHandle, 0, len(next))
	for _, d := range next {
		w.next++
		dh := editor.DecorationHandle(fmt.Sprintf("d%d", w.next))
		b.decorations[dh] = installedDecoration{Decoration: d, seq: int(w.next)}
		handles = append(handles, dh)
	}
	installed := sortedDecorations(b)
	sinks := append([]DecorationSink(nil), w.decorationSinks...)
	w.mu.Unlock()

	for _, s := range sinks {
		s.Decorations(b.uri, installed)
	}
	return handles
}

// Decorations returns the decorations installed on h sorted by position.
func (w *Widget) Decorations(h editor.Handle) []editor.Decoration {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffer(h)
	if !ok {
		return nil
	}
	return sortedDecorations(b)
}

// sortedDecorations orders by start position, then by the order applied.
func sortedDecorations(b *Buffer) []editor.Decoration {
	installed := make([]installedDecoration, 0, len(b.decorations))
	for _, d := range b.decorations {
		installed = append(installed, d)
	}
	sort.Slice(installed, func(i, j int) bool {
		ri, rj := installed[i].Range, installed[j].Range
		if ri.StartLine != rj.StartLine {
			return ri.StartLine < rj.StartLine
		}
		if ri.StartColumn != rj.StartColumn {
			return ri.StartColumn < rj.StartColumn
		}
		return installed[i].seq < installed[j].seq
	})
	result := make([]editor.Decoration, 0, len(installed))
	for _, d := range installed {
		result = append(result, d.Decoration)
	}
	return result
}
