package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shurtu-gal/studio/internal/manager"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var ErrArguments = errors.New("server: invalid command arguments")

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	s.capture(context)
	ctx, cancel := withTimeout()
	defer cancel()

	log.Debugf("executing %s", params.Command)
	switch params.Command {
	case CommandImport:
		var req manager.ImportRequest
		if err := argument(params.Arguments, &req); err != nil {
			return nil, err
		}
		return s.manager.Import(ctx, req)

	case CommandDiff:
		id, err := idArgument(params.Arguments)
		if err != nil {
			return nil, err
		}
		return s.manager.Diff(ctx, id)

	case CommandSave:
		id, err := idArgument(params.Arguments)
		if err != nil {
			return nil, err
		}
		return nil, s.manager.Save(ctx, id)

	case CommandResources:
		return s.manager.Resources(ctx)

	default:
		return nil, fmt.Errorf("server: unknown command %q", params.Command)
	}
}

// argument decodes the first argument into v.
func argument(args []any, v any) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing argument", ErrArguments)
	}
	data, err := json.Marshal(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArguments, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrArguments, err)
	}
	return nil
}

// idArgument accepts a bare id or an object with an id field.
func idArgument(args []any) (string, error) {
	if len(args) > 0 {
		if id, ok := args[0].(string); ok && id != "" {
			return id, nil
		}
	}
	var v struct {
		ID string `json:"id"`
	}
	if err := argument(args, &v); err != nil {
		return "", err
	}
	if v.ID == "" {
		return "", fmt.Errorf("%w: missing id", ErrArguments)
	}
	return v.ID, nil
}
