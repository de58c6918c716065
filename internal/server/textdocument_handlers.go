package server

import (
	"errors"

	"github.com/Shurtu-gal/studio/internal/manager"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.capture(context)
	ctx, cancel := withTimeout()
	defer cancel()

	doc := params.TextDocument
	id, err := s.manager.Open(ctx, doc.URI, doc.LanguageID, doc.Text)
	if err != nil {
		return err
	}
	log.Debugf("opened %s as %s", doc.URI, id)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	ctx, cancel := withTimeout()
	defer cancel()
	return s.manager.Change(ctx, params.TextDocument.URI, params.ContentChanges)
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	ctx, cancel := withTimeout()
	defer cancel()

	uri := params.TextDocument.URI
	if params.Text != nil {
		err := s.manager.Change(ctx, uri, []any{
			protocol.TextDocumentContentChangeEventWhole{Text: *params.Text},
		})
		if err != nil {
			return err
		}
	}
	id, err := s.manager.Lookup(ctx, uri)
	if err != nil {
		return err
	}
	err = s.manager.Save(ctx, id)
	if errors.Is(err, manager.ErrNoStore) {
		log.Debugf("save of %s not persisted: %v", uri, err)
		return nil
	}
	return err
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	ctx, cancel := withTimeout()
	defer cancel()
	return s.manager.Close(ctx, params.TextDocument.URI)
}
