package parser

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Checker produces the diagnostics of one document.
type Checker interface {
	Check(ctx context.Context, content string) ([]protocol.Diagnostic, error)
	Close() error
}
