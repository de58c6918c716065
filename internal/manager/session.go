package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Shurtu-gal/studio/internal/diff"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/scheduler"
	"github.com/Shurtu-gal/studio/internal/store"
)

// Session is the workspace layout persisted between runs.
type Session struct {
	Active    string            `json:"active,omitempty"`
	Documents []SessionDocument `json:"documents"`
}

type SessionDocument struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Language string `json:"language"`
}

type snapshot struct {
	session  Session
	contents map[string]string
}

// snapshot captures the session. It must run on the editor goroutine.
func (m *DocumentManager) snapshot() snapshot {
	snap := snapshot{contents: make(map[string]string)}
	snap.session.Active, _ = m.editor.Active()
	for _, res := range m.registry.List() {
		snap.session.Documents = append(snap.session.Documents, SessionDocument{
			ID:       res.ID,
			URI:      res.URI,
			Language: res.Language,
		})
		content, _ := m.editor.Value(res.ID)
		snap.contents[res.ID] = content
	}
	return snap
}

func (m *DocumentManager) persist(ctx context.Context, snap snapshot) error {
	ids := make([]string, 0, len(snap.contents))
	for id := range snap.contents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := m.store.Set(ctx, store.DocumentKey(id), snap.contents[id]); err != nil {
			return fmt.Errorf("failed to persist %s: %w", id, err)
		}
	}

	data, err := json.Marshal(snap.session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.store.Set(ctx, store.SessionKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	log.Debugf("persisted session with %d documents", len(snap.session.Documents))
	return nil
}

// PersistSession saves the open documents, their content and the active id.
func (m *DocumentManager) PersistSession(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	var snap snapshot
	err := m.run(ctx, "session", func() error {
		snap = m.snapshot()
		return nil
	})
	if err != nil {
		return err
	}
	return m.persist(ctx, snap)
}

// PersistEvery persists the session on the editor goroutine every interval
// until the manager shuts down.
func (m *DocumentManager) PersistEvery(interval time.Duration) {
	if m.store == nil || interval <= 0 {
		return
	}
	m.scheduler.SchedulePeriodicTask(interval, scheduler.Task{
		Name: "persist",
		Execute: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			return m.persist(ctx, m.snapshot())
		},
	})
}

// RestoreSession reopens the documents of the last persisted session. It
// returns the number of documents restored.
func (m *DocumentManager) RestoreSession(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	raw, ok, err := m.store.Get(ctx, store.SessionKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return 0, nil
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return 0, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	resources := make([]registry.Resource, 0, len(session.Documents))
	for _, doc := range session.Documents {
		content, ok, err := m.store.Get(ctx, store.DocumentKey(doc.ID))
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", doc.ID, err)
		}
		if !ok {
			log.Warningf("session document %s has no saved content", doc.ID)
			continue
		}
		resources = append(resources, registry.Resource{
			ID:       doc.ID,
			URI:      doc.URI,
			Language: doc.Language,
			Content:  content,
			Origin:   registry.OriginEditor,
		})
	}

	err = m.run(ctx, "restore", func() error {
		for _, res := range resources {
			if err := m.registry.Upsert(res); err != nil {
				return err
			}
		}
		if session.Active != "" {
			if _, ok := m.registry.Get(session.Active); ok {
				m.activate(session.Active)
				m.editor.Flush(session.Active)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Infof("restored %d documents", len(resources))
	return len(resources), nil
}

// DiffMaxBytes bounds the inputs of Diff.
const DiffMaxBytes = 1 << 20

// Diff renders the changes between the saved and the live content of id.
func (m *DocumentManager) Diff(ctx context.Context, id string) (string, error) {
	live, err := m.Content(ctx, id)
	if err != nil {
		return "", err
	}
	saved, _, err := m.Saved(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read saved %s: %w", id, err)
	}
	patch, oversize := diff.Unified("saved/"+id, "live/"+id, saved, live, diff.Options{MaxBytes: DiffMaxBytes})
	if oversize {
		log.Warningf("diff of %s omitted: inputs exceed %d bytes", id, DiffMaxBytes)
	}
	return patch, nil
}
