// Package manager wires the editor core to its collaborators and exposes
// the workspace operations used by the LSP and HTTP front ends. Every
// operation runs on the scheduler goroutine that owns the editor core.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shurtu-gal/studio/internal/analysis"
	"github.com/Shurtu-gal/studio/internal/bus"
	"github.com/Shurtu-gal/studio/internal/editor"
	"github.com/Shurtu-gal/studio/internal/importer"
	"github.com/Shurtu-gal/studio/internal/parser"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/scheduler"
	"github.com/Shurtu-gal/studio/internal/settings"
	"github.com/Shurtu-gal/studio/internal/store"
	"github.com/Shurtu-gal/studio/internal/widget"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.manager")

var (
	ErrNoSource = errors.New("manager: import needs a url, a path or a base64 payload")
	ErrNoStore  = errors.New("manager: no store configured")
)

// SettingsSource is the live settings the manager reads and updates.
type SettingsSource interface {
	Get() settings.Settings
	Set(next settings.Settings)
	OnChange(fn settings.ChangeFunc)
}

type Config struct {
	Store    store.Store
	Settings SettingsSource
	// Checker defaults to the tree-sitter YAML checker.
	Checker parser.Checker
	// Importer options.
	HTTPClient    importer.Doer
	MaxImportSize int64
	// Clock is handed to the editor core. Defaults to the wall clock.
	Clock editor.Clock
}

type DocumentManager struct {
	scheduler *scheduler.Scheduler
	bus       *bus.Bus
	registry  *registry.Registry
	widget    *widget.Widget
	editor    *editor.Manager
	analysis  *analysis.Service
	importer  *importer.Importer
	store     store.Store
	settings  SettingsSource

	detach   []func()
	shutdown sync.Once
}

// NewDocumentManager builds the workspace and starts its scheduler.
func NewDocumentManager(cfg Config) *DocumentManager {
	if cfg.Checker == nil {
		cfg.Checker = parser.NewYAMLChecker()
	}

	m := &DocumentManager{
		scheduler: scheduler.NewScheduler(64),
		bus:       bus.New(),
		widget:    widget.New(),
		store:     cfg.Store,
		settings:  cfg.Settings,
	}
	m.registry = registry.New(m.bus)

	post := func(name string) func(fn func()) {
		return func(fn func()) { m.scheduler.Post(name, fn) }
	}

	m.analysis = analysis.NewService(analysis.Config{
		Checker:   cfg.Checker,
		Settings:  cfg.Settings,
		Publisher: m.bus,
		Dispatch:  post("analysis"),
	})

	var persist editor.Persistence
	if cfg.Store != nil {
		persist = cfg.Store
	}
	m.editor = editor.NewManager(editor.Config{
		Widget:    m.widget,
		Resources: m.registry,
		Analyzer:  m.analysis,
		Settings:  cfg.Settings,
		Bus:       m.bus,
		Store:     persist,
		Clock:     cfg.Clock,
		Post:      post("flush"),
	})

	m.importer = importer.New(cfg.HTTPClient, cfg.MaxImportSize, m.inject)

	m.scheduler.RunScheduler()
	err := m.run(context.Background(), "init", func() error {
		m.editor.Init()
		m.detach = append(m.detach, m.analysis.Attach(m.bus))
		return nil
	})
	if err != nil {
		log.Errorf("failed to initialize the editor core: %v", err)
	}

	cfg.Settings.OnChange(func(previous, current settings.Settings) {
		m.scheduler.Post("settings", func() {
			m.bus.Publish(bus.SettingsChanged{Previous: previous, Current: current})
		})
	})
	return m
}

// Widget exposes the headless widget so front ends can register sinks.
func (m *DocumentManager) Widget() *widget.Widget { return m.widget }

// Bus is the event bus of the workspace. Publish only from within Do.
func (m *DocumentManager) Bus() *bus.Bus { return m.bus }

func (m *DocumentManager) Settings() settings.Settings { return m.settings.Get() }

func (m *DocumentManager) run(ctx context.Context, name string, fn func() error) error {
	return m.scheduler.Run(ctx, scheduler.Task{Name: name, Execute: fn})
}

// Do runs fn on the editor goroutine.
func (m *DocumentManager) Do(ctx context.Context, name string, fn func() error) error {
	return m.run(ctx, name, fn)
}

// Open registers the document at uri and makes it active. It returns the
// resource id.
func (m *DocumentManager) Open(ctx context.Context, uri, language, text string) (string, error) {
	var id string
	err := m.run(ctx, "open", func() error {
		existing, ok := m.registry.Lookup(uri)
		id = uri
		if ok {
			id = existing
		}
		if err := m.registry.Upsert(registry.Resource{
			ID:       id,
			URI:      uri,
			Language: language,
			Content:  text,
			Origin:   registry.OriginClient,
		}); err != nil {
			return err
		}
		m.activate(id)
		m.editor.Flush(id)
		return nil
	})
	return id, err
}

func (m *DocumentManager) activate(id string) {
	m.bus.Publish(bus.ActiveTabChanged{TabID: "editor:" + id, Kind: bus.TabEditor, ResourceID: id})
}

// Lookup returns the id of the resource at uri.
func (m *DocumentManager) Lookup(ctx context.Context, uri string) (string, error) {
	var id string
	err := m.run(ctx, "lookup", func() error {
		var ok bool
		if id, ok = m.registry.Lookup(uri); !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, uri)
		}
		return nil
	})
	return id, err
}

// Activate switches the editor to id.
func (m *DocumentManager) Activate(ctx context.Context, id string) error {
	return m.run(ctx, "activate", func() error {
		if _, ok := m.registry.Get(id); !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
		}
		m.activate(id)
		return nil
	})
}

// MoveCursor moves the cursor of the document at uri, activating it first if
// another document is bound. The view is what a later switch back restores.
func (m *DocumentManager) MoveCursor(ctx context.Context, uri string, pos editor.Position, scrollTop int) error {
	return m.run(ctx, "cursor", func() error {
		id, ok := m.registry.Lookup(uri)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, uri)
		}
		if active, _ := m.editor.Active(); active != id {
			m.activate(id)
		}
		m.widget.MoveCursor(pos, scrollTop)
		return nil
	})
}

// Change applies LSP content changes to the document at uri.
func (m *DocumentManager) Change(ctx context.Context, uri string, changes []any) error {
	return m.run(ctx, "change", func() error {
		id, ok := m.registry.Lookup(uri)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, uri)
		}
		if active, _ := m.editor.Active(); active != id {
			m.activate(id)
		}
		h, ok := m.editor.Handle(id)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
		}
		_, err := m.widget.ApplyChanges(h, changes)
		return err
	})
}

// Close removes the document at uri from the workspace.
func (m *DocumentManager) Close(ctx context.Context, uri string) error {
	return m.run(ctx, "close", func() error {
		id, ok := m.registry.Lookup(uri)
		if !ok {
			log.Debugf("close of unknown document %s ignored", uri)
			return nil
		}
		return m.registry.Remove(id)
	})
}

// Resources lists the workspace documents with their live content.
func (m *DocumentManager) Resources(ctx context.Context) ([]registry.Resource, error) {
	var result []registry.Resource
	err := m.run(ctx, "resources", func() error {
		result = m.registry.List()
		for i := range result {
			if value, ok := m.editor.Value(result[i].ID); ok {
				result[i].Content = value
			}
		}
		return nil
	})
	return result, err
}

// Content returns the live content of id.
func (m *DocumentManager) Content(ctx context.Context, id string) (string, error) {
	var content string
	err := m.run(ctx, "content", func() error {
		value, ok := m.editor.Value(id)
		if !ok {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
		}
		content = value
		return nil
	})
	return content, err
}

// Save persists the live content of id and analyzes it right away.
func (m *DocumentManager) Save(ctx context.Context, id string) error {
	if m.store == nil {
		return ErrNoStore
	}
	content, err := m.Content(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, store.DocumentKey(id), content); err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}
	return m.run(ctx, "save", func() error {
		m.editor.Flush(id)
		return nil
	})
}

// Saved returns the persisted content of id, if any.
func (m *DocumentManager) Saved(ctx context.Context, id string) (string, bool, error) {
	if m.store == nil {
		return "", false, nil
	}
	return m.store.Get(ctx, store.DocumentKey(id))
}

// UpdateSettings overlays raw onto the current settings.
func (m *DocumentManager) UpdateSettings(raw any) error {
	next, err := settings.Load(m.settings.Get(), raw)
	if err != nil {
		return err
	}
	m.settings.Set(next)
	return nil
}

// ApplySettings replaces the current settings with next.
func (m *DocumentManager) ApplySettings(next settings.Settings) {
	m.settings.Set(next)
}

// ImportRequest names exactly one source.
type ImportRequest struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Path   string `json:"path,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// ImportDir imports every document under root. Ids are prefixed with prefix.
func (m *DocumentManager) ImportDir(ctx context.Context, prefix, root string) ([]importer.Result, error) {
	return m.importer.FromDir(ctx, prefix, root)
}

// Import loads a document and makes it active. It must not be called from
// the editor goroutine.
func (m *DocumentManager) Import(ctx context.Context, req ImportRequest) (importer.Result, error) {
	switch {
	case req.URL != "":
		return m.importer.FromURL(ctx, req.ID, req.URL)
	case req.Path != "":
		return m.importer.FromFile(ctx, req.ID, req.Path)
	case req.Base64 != "":
		return m.importer.FromBase64(ctx, req.ID, req.Base64)
	default:
		return importer.Result{}, ErrNoSource
	}
}

func (m *DocumentManager) inject(ctx context.Context, id, content, language string) error {
	return m.run(ctx, "import", func() error {
		if err := m.registry.Upsert(registry.Resource{
			ID:       id,
			Language: language,
			Content:  content,
			Origin:   registry.OriginImport,
		}); err != nil {
			return err
		}
		m.activate(id)
		m.editor.Flush(id)
		return nil
	})
}

// Shutdown persists the session and stops the scheduler after releasing
// the editor core. Later calls do nothing.
func (m *DocumentManager) Shutdown(timeout time.Duration) {
	m.shutdown.Do(func() { m.stop(timeout) })
}

func (m *DocumentManager) stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := m.PersistSession(ctx); err != nil {
		log.Warningf("failed to persist session: %v", err)
	}
	err := m.run(ctx, "shutdown", func() error {
		for _, detach := range m.detach {
			detach()
		}
		m.editor.Close()
		return nil
	})
	if err != nil {
		log.Warningf("failed to release the editor core: %v", err)
	}
	m.analysis.Close()
	m.scheduler.StopScheduler()
}
