package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Shurtu-gal/studio/internal/sitteradapter"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var ErrClosed = errors.New("parser: closed")

// Source is the diagnostic source reported to clients.
const Source = "studio"

// YAMLChecker checks YAML and JSON documents with the tree-sitter YAML
// grammar. JSON parses as YAML flow style.
type YAMLChecker struct {
	lang   *sitter.Language
	pool   sync.Pool
	mu     sync.Mutex
	closed bool
}

func NewYAMLChecker() *YAMLChecker {
	c := &YAMLChecker{lang: yaml.GetLanguage()}
	c.pool = sync.Pool{
		New: func() interface{} {
			p := sitter.NewParser()
			p.SetLanguage(c.lang)
			return p
		},
	}
	return c
}

// Check implements Checker.
func (c *YAMLChecker) Check(ctx context.Context, content string) ([]protocol.Diagnostic, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if strings.TrimSpace(content) == "" {
		return []protocol.Diagnostic{
			newDiagnostic(protocol.Range{}, protocol.DiagnosticSeverityWarning, "document is empty"),
		}, nil
	}

	src := []byte(content)
	tree, err := c.parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	defer tree.Close()

	doc := sitteradapter.NewDocument(content)
	root := tree.RootNode()

	var diagnostics []protocol.Diagnostic
	diagnostics = append(diagnostics, syntaxErrors(doc, root)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, structure(doc, root, src)...)
	return diagnostics, nil
}

// parse runs a pooled parser under ctx. A parser is only returned to the pool
// when its cancellation flag was never raised; otherwise it is reset and
// closed, since tree-sitter would resume the abandoned parse on the next call.
func (c *YAMLChecker) parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	p := c.pool.Get().(*sitter.Parser)

	// Only the watcher cancels pctx, so its state is final once the watcher
	// has returned.
	pctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	tree, err := p.ParseCtx(pctx, nil, src)
	close(done)
	<-watched

	if err != nil || pctx.Err() != nil {
		if tree != nil {
			tree.Close()
		}
		p.Reset()
		p.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	c.pool.Put(p)
	return tree, nil
}

// Close stops the checker. Pooled parsers are left to the collector.
func (c *YAMLChecker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newDiagnostic(r protocol.Range, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := Source
	return protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}
