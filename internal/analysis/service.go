// Package analysis runs document checks off the editor goroutine and
// publishes the results on the bus.
package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/Shurtu-gal/studio/internal/bus"
	"github.com/Shurtu-gal/studio/internal/parser"
	"github.com/Shurtu-gal/studio/internal/settings"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("studio.analysis")

type Publisher interface {
	Publish(ev bus.Event)
}

type SettingsSource interface {
	Get() settings.Settings
}

type Config struct {
	Checker   parser.Checker
	Settings  SettingsSource
	Publisher Publisher
	// Dispatch runs result delivery on the editor goroutine. Defaults to a
	// direct call.
	Dispatch func(fn func())
}

// Service tags every request with a per-uri sequence number. Only the result
// of the latest request for a uri is published; starting a newer request
// cancels the older one.
type Service struct {
	checker   parser.Checker
	settings  SettingsSource
	publisher Publisher
	dispatch  func(fn func())

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	seq     map[string]uint64
	cancels map[string]context.CancelFunc
	// results holds the unfiltered diagnostics last published per uri.
	results map[string][]protocol.Diagnostic
}

func NewService(cfg Config) *Service {
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { fn() }
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		checker:   cfg.Checker,
		settings:  cfg.Settings,
		publisher: cfg.Publisher,
		dispatch:  cfg.Dispatch,
		ctx:       ctx,
		stop:      stop,
		seq:       make(map[string]uint64),
		cancels:   make(map[string]context.CancelFunc),
		results:   make(map[string][]protocol.Diagnostic),
	}
}

// Analyze checks content in the background. It never blocks.
func (s *Service) Analyze(uri, content string) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if cancel, ok := s.cancels[uri]; ok {
		cancel()
	}
	s.seq[uri]++
	n := s.seq[uri]
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancels[uri] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		diagnostics, err := s.checker.Check(ctx, content)
		if err != nil {
			if ctx.Err() == nil {
				log.Warningf("analysis of %s failed: %v", uri, err)
			}
			return
		}
		s.dispatch(func() { s.deliver(uri, n, diagnostics) })
	}()
}

func (s *Service) deliver(uri string, n uint64, diagnostics []protocol.Diagnostic) {
	s.mu.Lock()
	if s.seq[uri] != n {
		s.mu.Unlock()
		log.Debugf("stale analysis of %s dropped", uri)
		return
	}
	if cancel, ok := s.cancels[uri]; ok {
		cancel()
		delete(s.cancels, uri)
	}
	s.results[uri] = diagnostics
	s.mu.Unlock()

	show := settings.Default().Governance.Show
	if s.settings != nil {
		show = s.settings.Get().Governance.Show
	}
	s.publisher.Publish(bus.DocumentAnalyzed{URI: uri, Diagnostics: Filter(diagnostics, show)})
}

// Forget drops every request for uri and publishes its removal.
func (s *Service) Forget(uri string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[uri]; ok {
		cancel()
		delete(s.cancels, uri)
	}
	// The sequence keeps counting so a result from before Forget can never
	// match a request made after it.
	s.seq[uri]++
	delete(s.results, uri)
	s.mu.Unlock()

	s.publisher.Publish(bus.DocumentRemoved{URI: uri})
}

// Attach forgets documents when their resource is removed and re-filters the
// last results when the governance settings change.
func (s *Service) Attach(b *bus.Bus) (detach func()) {
	unsubs := []func(){
		bus.On(b, func(ev bus.ResourceRemoved) {
			s.Forget(ev.URI)
		}),
		bus.On(b, func(ev bus.SettingsChanged) {
			if settings.GovernanceChanged(ev.Previous, ev.Current) {
				s.refilter(ev.Current.Governance.Show)
			}
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// refilter publishes the last results of every document under show, without
// checking the content again.
func (s *Service) refilter(show settings.Show) {
	s.mu.Lock()
	uris := make([]string, 0, len(s.results))
	for uri := range s.results {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	updates := make([]bus.DocumentUpdated, 0, len(uris))
	for _, uri := range uris {
		updates = append(updates, bus.DocumentUpdated{URI: uri, Diagnostics: Filter(s.results[uri], show)})
	}
	s.mu.Unlock()

	for _, ev := range updates {
		s.publisher.Publish(ev)
	}
}

// Close cancels in-flight work and waits for it to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	s.wg.Wait()
	return s.checker.Close()
}

// Filter drops the non-error diagnostics hidden by show. Errors and
// unknown severities are always kept.
func Filter(diagnostics []protocol.Diagnostic, show settings.Show) []protocol.Diagnostic {
	result := make([]protocol.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		if d.Severity != nil {
			switch *d.Severity {
			case protocol.DiagnosticSeverityWarning:
				if !show.Warnings {
					continue
				}
			case protocol.DiagnosticSeverityInformation:
				if !show.Informations {
					continue
				}
			case protocol.DiagnosticSeverityHint:
				if !show.Hints {
					continue
				}
			}
		}
		result = append(result, d)
	}
	return result
}
