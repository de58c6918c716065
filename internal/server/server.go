// Package server exposes the workspace over the language server protocol.
package server

import (
	"sync"

	"github.com/Shurtu-gal/studio/internal/manager"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const Name = "studio"

var log = commonlog.GetLogger("studio.server")

type Server struct {
	handler *protocol.Handler
	manager *manager.DocumentManager
	onExit  func()

	mu     sync.Mutex
	notify glsp.NotifyFunc
	trace  protocol.TraceValue
}

// New creates the protocol handler for mgr. onExit runs when the client
// sends exit and may be nil.
func New(mgr *manager.DocumentManager, onExit func()) *Server {
	s := &Server{manager: mgr, onExit: onExit, trace: protocol.TraceValueOff}
	s.handler = &protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		Exit:                            s.exit,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.textDocumentDidOpen,
		TextDocumentDidChange:           s.textDocumentDidChange,
		TextDocumentDidSave:             s.textDocumentDidSave,
		TextDocumentDidClose:            s.textDocumentDidClose,
		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
		WorkspaceExecuteCommand:         s.workspaceExecuteCommand,
	}

	publisher := &publisher{server: s}
	mgr.Widget().AddMarkerSink(publisher)
	mgr.Widget().AddDecorationSink(publisher)
	return s
}

func (s *Server) Handler() *protocol.Handler { return s.handler }

// RunStdio serves the protocol on stdin and stdout until the connection
// closes.
func (s *Server) RunStdio() error {
	return server.NewServer(s, Name, false).RunStdio()
}

// capture remembers the notify function of the client connection.
func (s *Server) capture(context *glsp.Context) {
	if context == nil || context.Notify == nil {
		return
	}
	s.mu.Lock()
	s.notify = context.Notify
	s.mu.Unlock()
}

func (s *Server) send(method string, params any) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		return
	}
	notify(method, params)
}

func (s *Server) Trace() protocol.TraceValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}
