package editor

import (
	"context"
	"time"

	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/store"
)

// Timer is a scheduled, cancelable action.
type Timer interface {
	Stop() bool
}

// Clock schedules debounce flushes. The callback may run on any goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Persistence is the part of store.Store the synchronizer writes to.
type Persistence interface {
	Set(ctx context.Context, key, value string) error
}

type pendingFlush struct {
	timer  Timer
	handle Handle
}

// synchronizer forwards settled content of the bound buffer to the analyzer.
type synchronizer struct {
	widget    Widget
	resources Resources
	analyzer  Analyzer
	settings  SettingsSource
	persist   Persistence
	clock     Clock
	post      func(func())

	boundID string
	bound   Handle
	sub     Subscription

	pending map[string]*pendingFlush
}

func newSynchronizer(cfg Config) *synchronizer {
	return &synchronizer{
		widget:    cfg.Widget,
		resources: cfg.Resources,
		analyzer:  cfg.Analyzer,
		settings:  cfg.Settings,
		persist:   cfg.Store,
		clock:     cfg.Clock,
		post:      cfg.Post,
		pending:   make(map[string]*pendingFlush),
	}
}

// bind replaces the live subscription with one on h.
func (s *synchronizer) bind(id string, h Handle) {
	s.unbind()
	s.boundID = id
	s.bound = h
	s.sub = s.widget.OnContentChanged(h, func() {
		s.schedule(id, h)
	})
}

func (s *synchronizer) unbind() {
	if s.sub != nil {
		s.sub.Dispose()
		s.sub = nil
	}
	s.boundID = ""
	s.bound = nil
}

// resubscribe rebuilds the subscription of the bound buffer and schedules a
// flush so its diagnostics follow the new governance filter.
func (s *synchronizer) resubscribe() {
	if s.bound == nil {
		return
	}
	id, h := s.boundID, s.bound
	s.bind(id, h)
	s.schedule(id, h)
}

// schedule cancels the pending flush for id and arms a new one. The delay is
// read from the settings on every call.
func (s *synchronizer) schedule(id string, h Handle) {
	s.cancel(id)

	delay := s.settings.Get().Delay()
	p := &pendingFlush{handle: h}
	p.timer = s.clock.AfterFunc(delay, func() {
		s.post(func() {
			// A timer that lost the race against Stop must not flush.
			if s.pending[id] != p {
				return
			}
			delete(s.pending, id)
			s.flush(id, p.handle)
		})
	})
	s.pending[id] = p
}

func (s *synchronizer) cancel(id string) {
	p, ok := s.pending[id]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(s.pending, id)
}

func (s *synchronizer) flushNow(id string, h Handle) {
	s.cancel(id)
	s.flush(id, h)
}

func (s *synchronizer) flush(id string, h Handle) {
	uri := h.URI()
	content := s.widget.Value(h)
	s.analyzer.Analyze(uri, content)

	err := s.resources.Update(id, registry.Patch{Content: &content, Origin: registry.OriginEditor})
	if err != nil {
		log.Debugf("write back of %s skipped: %v", id, err)
		return
	}

	if s.persist == nil || !s.settings.Get().Editor.AutoSaving {
		return
	}
	if err := s.persist.Set(context.Background(), store.DocumentKey(id), content); err != nil {
		log.Warningf("failed to autosave %s: %v", id, err)
	}
}

func (s *synchronizer) close() {
	s.unbind()
	for id := range s.pending {
		s.cancel(id)
	}
}
