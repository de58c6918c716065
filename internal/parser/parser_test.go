package parser_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Shurtu-gal/studio/internal/parser"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func check(t *testing.T, content string) []protocol.Diagnostic {
	t.Helper()
	c := parser.NewYAMLChecker()
	defer c.Close()

	diagnostics, err := c.Check(context.Background(), content)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	return diagnostics
}

func messages(diagnostics []protocol.Diagnostic) []string {
	var result []string
	for _, d := range diagnostics {
		result = append(result, d.Message)
	}
	return result
}

func TestValidDocument(t *testing.T) {
	diagnostics := check(t, "asyncapi: 3.0.0\ninfo:\n  title: Demo\n  description: A demo\n")
	if len(diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", messages(diagnostics))
	}
}

func TestValidJSONDocument(t *testing.T) {
	diagnostics := check(t, `{"openapi": "3.1.0", "info": {"title": "x", "description": "y"}}`)
	if len(diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", messages(diagnostics))
	}
}

func TestEmptyDocument(t *testing.T) {
	diagnostics := check(t, "  \n")
	if len(diagnostics) != 1 || *diagnostics[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Fatalf("expected one warning, got %v", messages(diagnostics))
	}
}

func TestMissingInfo(t *testing.T) {
	diagnostics := check(t, "openapi: 3.1.0\npaths: {}\n")
	if len(diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %v", messages(diagnostics))
	}
	if *diagnostics[0].Severity != protocol.DiagnosticSeverityInformation {
		t.Fatalf("expected information severity, got %v", *diagnostics[0].Severity)
	}
}

func TestInfoWithoutDescription(t *testing.T) {
	diagnostics := check(t, "asyncapi: 3.0.0\ninfo:\n  title: Demo\n")
	if len(diagnostics) != 1 || *diagnostics[0].Severity != protocol.DiagnosticSeverityHint {
		t.Fatalf("expected one hint, got %v", messages(diagnostics))
	}
	r := diagnostics[0].Range
	if r.Start.Line != 1 || r.Start.Character != 0 || r.End.Character != 4 {
		t.Fatalf("hint not placed on the info key: %+v", r)
	}
}

func TestMissingKindAndDuplicateKey(t *testing.T) {
	diagnostics := check(t, "info:\n  description: d\ninfo:\n  description: e\n")

	var duplicate, kind bool
	for _, d := range diagnostics {
		switch {
		case strings.HasPrefix(d.Message, "duplicate key"):
			duplicate = true
			if d.Range.Start.Line != 2 {
				t.Errorf("duplicate reported on line %d", d.Range.Start.Line)
			}
		case strings.Contains(d.Message, "asyncapi"):
			kind = true
		}
	}
	if !duplicate || !kind {
		t.Fatalf("expected duplicate and kind warnings, got %v", messages(diagnostics))
	}
}

func TestSyntaxError(t *testing.T) {
	diagnostics := check(t, "asyncapi: [1, 2\ninfo: {description: x}\n")

	found := false
	for _, d := range diagnostics {
		if *d.Severity == protocol.DiagnosticSeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an error diagnostic, got %v", messages(diagnostics))
	}
}

func TestScalarRoot(t *testing.T) {
	diagnostics := check(t, "just text\n")
	if len(diagnostics) != 1 || diagnostics[0].Message != "document root is not a mapping" {
		t.Fatalf("unexpected diagnostics %v", messages(diagnostics))
	}
}

func TestClosedChecker(t *testing.T) {
	c := parser.NewYAMLChecker()
	c.Close()
	if _, err := c.Check(context.Background(), "a: 1"); !errors.Is(err, parser.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func largeDocument() string {
	var b strings.Builder
	b.WriteString("asyncapi: 3.0.0\ninfo:\n  title: big\n  description: big\nchannels:\n")
	for i := 0; b.Len() < 8<<20; i++ {
		fmt.Fprintf(&b, "  channel%d:\n    address: [a, b, {c: d}]\n", i)
	}
	return b.String()
}

func TestCancelledCheckLeavesCheckerUsable(t *testing.T) {
	c := parser.NewYAMLChecker()
	defer c.Close()
	big := largeDocument()
	valid := "asyncapi: 3.0.0\ninfo:\n  title: Demo\n  description: A demo\n"

	for round := 0; round < 5; round++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
		_, _ = c.Check(ctx, big)
		cancel()

		diagnostics, err := c.Check(context.Background(), valid)
		if err != nil {
			t.Fatalf("round %d: Check failed: %v", round, err)
		}
		if len(diagnostics) != 0 {
			t.Fatalf("round %d: expected no diagnostics, got %v", round, messages(diagnostics))
		}
	}
}

func TestCancelledContext(t *testing.T) {
	c := parser.NewYAMLChecker()
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Check(ctx, "a: 1\n"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	diagnostics, err := c.Check(context.Background(), "just text\n")
	if err != nil || len(diagnostics) != 1 {
		t.Fatalf("unexpected diagnostics %v (%v)", messages(diagnostics), err)
	}
}
