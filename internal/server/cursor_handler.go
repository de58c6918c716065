package server

import (
	"encoding/json"

	"github.com/Shurtu-gal/studio/internal/editor"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// MethodCursor reports where the client's cursor is in a document.
const MethodCursor = "studio/cursor"

type CursorParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position               `json:"position"`
	ScrollTop    int                             `json:"scrollTop"`
}

// Handle serves the studio notifications and hands everything else to the
// protocol handler.
func (s *Server) Handle(context *glsp.Context) (any, bool, bool, error) {
	if context.Method != MethodCursor {
		return s.handler.Handle(context)
	}
	s.capture(context)

	var params CursorParams
	if err := json.Unmarshal(context.Params, &params); err != nil {
		return nil, true, false, err
	}
	return nil, true, true, s.cursor(&params)
}

func (s *Server) cursor(params *CursorParams) error {
	ctx, cancel := withTimeout()
	defer cancel()
	pos := editor.Position{
		Line:   int(params.Position.Line) + 1,
		Column: int(params.Position.Character) + 1,
	}
	return s.manager.MoveCursor(ctx, params.TextDocument.URI, pos, params.ScrollTop)
}
