package bus

import (
	"github.com/Shurtu-gal/studio/internal/settings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	TopicResourceCreated  Topic = "resource.created"
	TopicResourceUpdated  Topic = "resource.updated"
	TopicResourceRemoved  Topic = "resource.removed"
	TopicActiveTabChanged Topic = "tab.active"
	TopicDocumentAnalyzed Topic = "document.analyzed"
	TopicDocumentUpdated  Topic = "document.updated"
	TopicDocumentRemoved  Topic = "document.removed"
	TopicSettingsChanged  Topic = "settings.changed"
)

type ResourceCreated struct {
	ID  string
	URI string
}

func (ResourceCreated) Topic() Topic { return TopicResourceCreated }

// ResourceUpdated is published after a resource record changed.
// Origin names who changed it ("editor", "import", "client").
type ResourceUpdated struct {
	ID      string
	URI     string
	Origin  string
	Version int
}

func (ResourceUpdated) Topic() Topic { return TopicResourceUpdated }

type ResourceRemoved struct {
	ID  string
	URI string
}

func (ResourceRemoved) Topic() Topic { return TopicResourceRemoved }

type TabKind string

const (
	TabEditor   TabKind = "editor"
	TabPreview  TabKind = "preview"
	TabSettings TabKind = "settings"
)

type ActiveTabChanged struct {
	TabID      string
	Kind       TabKind
	ResourceID string
}

func (ActiveTabChanged) Topic() Topic { return TopicActiveTabChanged }

type DocumentAnalyzed struct {
	URI         string
	Diagnostics []protocol.Diagnostic
}

func (DocumentAnalyzed) Topic() Topic { return TopicDocumentAnalyzed }

type DocumentUpdated struct {
	URI         string
	Diagnostics []protocol.Diagnostic
}

func (DocumentUpdated) Topic() Topic { return TopicDocumentUpdated }

type DocumentRemoved struct {
	URI string
}

func (DocumentRemoved) Topic() Topic { return TopicDocumentRemoved }

type SettingsChanged struct {
	Previous settings.Settings
	Current  settings.Settings
}

func (SettingsChanged) Topic() Topic { return TopicSettingsChanged }
