package editor

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	classWarning     = "diagnostic-warning"
	classInformation = "diagnostic-information"
	classHint        = "diagnostic-hint"
)

// SeverityClass maps a severity to its glyph class. Unknown severities get
// the warning class.
func SeverityClass(severity *protocol.DiagnosticSeverity) string {
	if severity == nil {
		return classWarning
	}
	switch *severity {
	case protocol.DiagnosticSeverityInformation:
		return classInformation
	case protocol.DiagnosticSeverityHint:
		return classHint
	default:
		return classWarning
	}
}

// MarkerSeverityOf converts to the widget enumeration, defaulting to error.
func MarkerSeverityOf(severity *protocol.DiagnosticSeverity) MarkerSeverity {
	if severity == nil {
		return MarkerError
	}
	switch *severity {
	case protocol.DiagnosticSeverityWarning:
		return MarkerWarning
	case protocol.DiagnosticSeverityInformation:
		return MarkerInfo
	case protocol.DiagnosticSeverityHint:
		return MarkerHint
	default:
		return MarkerError
	}
}

// blocking reports whether d becomes a marker. Errors and severities the
// widget does not know are blocking so nothing is dropped.
func blocking(d protocol.Diagnostic) bool {
	if d.Severity == nil {
		return true
	}
	switch *d.Severity {
	case protocol.DiagnosticSeverityWarning,
		protocol.DiagnosticSeverityInformation,
		protocol.DiagnosticSeverityHint:
		return false
	default:
		return true
	}
}

// project shifts a zero-based range onto the widget's one-based grid.
func project(r protocol.Range) Range {
	return Range{
		StartLine:   int(r.Start.Line) + 1,
		StartColumn: int(r.Start.Character) + 1,
		EndLine:     int(r.End.Line) + 1,
		EndColumn:   int(r.End.Character) + 1,
	}
}

// Reconcile partitions diagnostics into markers and decorations, keeping
// input order. Decoration ids are "<class>-<n>" with n the position among
// the decorations.
func Reconcile(diagnostics []protocol.Diagnostic) ([]Marker, []Decoration) {
	markers := make([]Marker, 0, len(diagnostics))
	decorations := make([]Decoration, 0, len(diagnostics))

	for _, d := range diagnostics {
		r := project(d.Range)
		if blocking(d) {
			markers = append(markers, Marker{
				StartLine:   r.StartLine,
				StartColumn: r.StartColumn,
				EndLine:     r.EndLine,
				EndColumn:   r.EndColumn,
				Severity:    MarkerSeverityOf(d.Severity),
				Message:     d.Message,
			})
			continue
		}
		class := SeverityClass(d.Severity)
		decorations = append(decorations, Decoration{
			ID:           fmt.Sprintf("%s-%d", class, len(decorations)),
			Range:        r,
			GlyphClass:   class,
			HoverMessage: d.Message,
		})
	}
	return markers, decorations
}

type decorationEntry struct {
	uri         string
	diagnostics []protocol.Diagnostic
	handle      Handle
	applied     []DecorationHandle
}

// decorationCache mirrors the diagnostics last delivered for each resource
// and the widget decorations currently installed for them.
type decorationCache struct {
	widget  Widget
	entries map[string]*decorationEntry
}

func newDecorationCache(widget Widget) *decorationCache {
	return &decorationCache{
		widget:  widget,
		entries: make(map[string]*decorationEntry),
	}
}

// apply replaces every marker and decoration of id. h may be nil when the
// resource has no live buffer yet; decorations are installed once it has.
func (c *decorationCache) apply(id, uri string, h Handle, diagnostics []protocol.Diagnostic) {
	e, ok := c.entries[id]
	if !ok {
		e = &decorationEntry{}
		c.entries[id] = e
	}
	e.uri = uri
	e.diagnostics = append([]protocol.Diagnostic(nil), diagnostics...)

	markers, decorations := Reconcile(diagnostics)
	c.widget.SetMarkers(uri, markers)
	c.install(e, h, decorations)
}

func (c *decorationCache) install(e *decorationEntry, h Handle, decorations []Decoration) {
	// Handles applied to a buffer that has since been replaced died with it.
	if e.handle != nil && e.handle != h {
		e.applied = nil
	}
	e.handle = h
	if h == nil {
		e.applied = nil
		return
	}
	e.applied = c.widget.ApplyDecorationDelta(h, e.applied, decorations)
}

// attach installs the cached decorations of id onto a newly created buffer.
func (c *decorationCache) attach(id string, h Handle) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	_, decorations := Reconcile(e.diagnostics)
	c.install(e, h, decorations)
}

// clear removes every marker and decoration of id and forgets it.
func (c *decorationCache) clear(id string) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	c.widget.SetMarkers(e.uri, nil)
	if e.handle != nil && len(e.applied) > 0 {
		c.widget.ApplyDecorationDelta(e.handle, e.applied, nil)
	}
	delete(c.entries, id)
}

// lookup finds the id whose diagnostics were applied under uri.
func (c *decorationCache) lookup(uri string) (string, bool) {
	for id, e := range c.entries {
		if e.uri == uri {
			return id, true
		}
	}
	return "", false
}

func (c *decorationCache) handles(id string) []DecorationHandle {
	if e, ok := c.entries[id]; ok {
		return e.applied
	}
	return nil
}
