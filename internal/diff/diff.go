// Package diff renders unified diffs between the saved and the live
// content of a document.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

type Options struct {
	// MaxBytes bounds len(a)+len(b). 0 means no limit.
	MaxBytes int
	// Context is the number of context lines per hunk. Defaults to 3.
	Context int
}

// Unified returns the patch turning a into b, or "" when they are equal.
// oversize reports that the inputs exceeded MaxBytes and a placeholder was
// returned instead.
func Unified(aName, bName, a, b string, opt Options) (patch string, oversize bool) {
	if a == b {
		return "", false
	}
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true
	}

	context := opt.Context
	if context <= 0 {
		context = 3
	}

	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	})
	if err != nil || s == "" {
		return omitted(aName, bName), false
	}
	return s, false
}

// splitLines keeps the newline of every line.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted\n", aName, bName)
}
