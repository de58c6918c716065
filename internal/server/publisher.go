package server

import (
	"github.com/Shurtu-gal/studio/internal/editor"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// MethodDecorations carries the gutter decorations of one document.
const MethodDecorations = "studio/decorations"

type DecorationsParams struct {
	URI         protocol.DocumentUri `json:"uri"`
	Decorations []editor.Decoration  `json:"decorations"`
}

// publisher forwards widget markers and decorations to the client.
type publisher struct {
	server *Server
}

func (p *publisher) Markers(uri string, markers []editor.Marker) {
	diagnostics := make([]protocol.Diagnostic, 0, len(markers))
	for _, m := range markers {
		diagnostics = append(diagnostics, markerDiagnostic(m))
	}
	p.server.send("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (p *publisher) Decorations(uri string, decorations []editor.Decoration) {
	if decorations == nil {
		decorations = []editor.Decoration{}
	}
	p.server.send(MethodDecorations, DecorationsParams{URI: uri, Decorations: decorations})
}

// markerDiagnostic moves a marker back onto the zero-based protocol grid.
func markerDiagnostic(m editor.Marker) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	switch m.Severity {
	case editor.MarkerWarning:
		severity = protocol.DiagnosticSeverityWarning
	case editor.MarkerInfo:
		severity = protocol.DiagnosticSeverityInformation
	case editor.MarkerHint:
		severity = protocol.DiagnosticSeverityHint
	}
	source := Name
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: zeroBased(m.StartLine), Character: zeroBased(m.StartColumn)},
			End:   protocol.Position{Line: zeroBased(m.EndLine), Character: zeroBased(m.EndColumn)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  m.Message,
	}
}

func zeroBased(n int) protocol.UInteger {
	if n <= 1 {
		return 0
	}
	return protocol.UInteger(n - 1)
}
