package editor

import (
	"errors"

	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/settings"
)

// ErrIncompatibleViewState is returned by a Widget that cannot apply a
// restored snapshot to the bound buffer.
var ErrIncompatibleViewState = errors.New("editor: incompatible view state")

// Handle is a live buffer inside the widget. Handles are compared by identity.
type Handle interface {
	URI() string
}

// Subscription is a live content-change registration.
type Subscription interface {
	Dispose()
}

// Position is one-based, as the widget counts.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is one-based and end-exclusive in column.
type Range struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// ViewState is the interactive state of the widget at one instant. The core
// treats it as opaque.
type ViewState struct {
	Cursor     Position `json:"cursor"`
	Selection  *Range   `json:"selection,omitempty"`
	ScrollTop  int      `json:"scrollTop"`
	ScrollLeft int      `json:"scrollLeft"`
	Folded     []int    `json:"folded,omitempty"`
}

// MarkerSeverity uses the widget's enumeration.
type MarkerSeverity int

const (
	MarkerHint    MarkerSeverity = 1
	MarkerInfo    MarkerSeverity = 2
	MarkerWarning MarkerSeverity = 4
	MarkerError   MarkerSeverity = 8
)

// Marker is a blocking problem shown in the problems surface.
type Marker struct {
	StartLine   int            `json:"startLine"`
	StartColumn int            `json:"startColumn"`
	EndLine     int            `json:"endLine"`
	EndColumn   int            `json:"endColumn"`
	Severity    MarkerSeverity `json:"severity"`
	Message     string         `json:"message"`
}

// Decoration is a gutter glyph with a hover message.
type Decoration struct {
	ID           string `json:"id"`
	Range        Range  `json:"range"`
	GlyphClass   string `json:"glyphClass"`
	HoverMessage string `json:"hoverMessage"`
}

// DecorationHandle identifies an applied decoration inside the widget.
type DecorationHandle string

// Widget is the editing widget capability the core drives.
type Widget interface {
	CreateBuffer(uri, language, content string) (Handle, error)
	DisposeBuffer(h Handle)
	Value(h Handle) string
	SetValue(h Handle, text string)

	// BindActive swaps the displayed buffer. The view state is reset.
	BindActive(h Handle)
	Focus()
	// SaveViewState captures the view of the bound buffer; ok is false
	// when nothing is bound.
	SaveViewState() (vs ViewState, ok bool)
	RestoreViewState(vs ViewState) error

	OnContentChanged(h Handle, cb func()) Subscription

	// SetMarkers replaces every marker of uri.
	SetMarkers(uri string, markers []Marker)
	// ApplyDecorationDelta removes previous from h and installs next,
	// returning the handles of the installed decorations.
	ApplyDecorationDelta(h Handle, previous []DecorationHandle, next []Decoration) []DecorationHandle
}

// Resources is the registry seen from the core.
type Resources interface {
	Resource(id string) (registry.Resource, bool)
	Lookup(uri string) (id string, ok bool)
	Update(id string, patch registry.Patch) error
}

// Analyzer receives settled content. Calls are fire-and-forget.
type Analyzer interface {
	Analyze(uri, content string)
}

type SettingsSource interface {
	Get() settings.Settings
}
