package server

import (
	"context"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Commands accepted by workspace/executeCommand.
const (
	CommandImport    = "studio.import"
	CommandDiff      = "studio.diff"
	CommandSave      = "studio.save"
	CommandResources = "studio.resources"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.capture(context)

	if params.InitializationOptions != nil {
		if err := s.manager.UpdateSettings(unwrapSettings(params.InitializationOptions)); err != nil {
			return nil, err
		}
	}
	if params.Trace != nil {
		s.mu.Lock()
		s.trace = *params.Trace
		s.mu.Unlock()
	}
	if params.ClientInfo != nil {
		log.Infof("initializing for %s", params.ClientInfo.Name)
	}

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandImport, CommandDiff, CommandSave, CommandResources},
	}

	version := Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

// Version is reported to clients during initialize.
var Version = "(dev) v0.0.0"

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	s.capture(context)
	log.Infof("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	ctx, cancel := withTimeout()
	defer cancel()
	if err := s.manager.PersistSession(ctx); err != nil {
		log.Warningf("failed to persist session on shutdown: %v", err)
	}
	return nil
}

func (s *Server) exit(context *glsp.Context) error {
	if s.onExit != nil {
		s.onExit()
	}
	return nil
}

func (s *Server) setTrace(
	context *glsp.Context,
	params *protocol.SetTraceParams,
) error {
	s.mu.Lock()
	s.trace = params.Value
	s.mu.Unlock()
	log.Debugf("trace set to %s", params.Value)
	return nil
}

func (s *Server) workspaceDidChangeConfiguration(
	context *glsp.Context,
	params *protocol.DidChangeConfigurationParams,
) error {
	return s.manager.UpdateSettings(unwrapSettings(params.Settings))
}

// unwrapSettings accepts both {"studio": {...}} and the bare settings object.
func unwrapSettings(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		if inner, ok := m[Name]; ok {
			return inner
		}
	}
	return raw
}

// requestTimeout bounds a single protocol request on the editor loop.
const requestTimeout = 10 * time.Second

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
