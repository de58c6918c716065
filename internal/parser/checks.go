package parser

import (
	"fmt"
	"strings"

	"github.com/Shurtu-gal/studio/internal/sitteradapter"

	sitter "github.com/smacker/go-tree-sitter"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Root keys that identify a document kind.
var kindKeys = []string{"asyncapi", "openapi"}

func syntaxErrors(doc *sitteradapter.Document, root *sitter.Node) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			diagnostics = append(diagnostics, newDiagnostic(doc.Range(n),
				protocol.DiagnosticSeverityError, "missing "+n.Type()))
			return
		case n.IsError():
			diagnostics = append(diagnostics, newDiagnostic(doc.Range(n),
				protocol.DiagnosticSeverityError, "syntax error"))
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return diagnostics
}

type pair struct {
	key   string
	node  *sitter.Node
	value *sitter.Node
}

// mapping descends through node wrappers to the first mapping below n.
func mapping(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "block_mapping", "flow_mapping":
			return n
		case "stream", "document", "block_node", "flow_node":
			var next *sitter.Node
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child != nil && child.Type() != "comment" {
					next = child
					break
				}
			}
			n = next
		default:
			return nil
		}
	}
	return nil
}

func pairs(m *sitter.Node, src []byte) []pair {
	var result []pair
	for i := 0; i < int(m.NamedChildCount()); i++ {
		child := m.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Type() != "block_mapping_pair" && child.Type() != "flow_pair" {
			continue
		}
		key := child.ChildByFieldName("key")
		if key == nil {
			continue
		}
		result = append(result, pair{
			key:   strings.Trim(key.Content(src), `"'`),
			node:  key,
			value: child.ChildByFieldName("value"),
		})
	}
	return result
}

func lookup(ps []pair, key string) (pair, bool) {
	for _, p := range ps {
		if p.key == key {
			return p, true
		}
	}
	return pair{}, false
}

// structure checks the top-level layout of a spec document.
func structure(doc *sitteradapter.Document, root *sitter.Node, src []byte) []protocol.Diagnostic {
	top := mapping(root)
	if top == nil {
		return []protocol.Diagnostic{
			newDiagnostic(doc.Range(root), protocol.DiagnosticSeverityWarning, "document root is not a mapping"),
		}
	}

	var diagnostics []protocol.Diagnostic
	ps := pairs(top, src)
	start := protocol.Range{}

	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if seen[p.key] {
			diagnostics = append(diagnostics, newDiagnostic(doc.Range(p.node),
				protocol.DiagnosticSeverityWarning, fmt.Sprintf("duplicate key %q", p.key)))
		}
		seen[p.key] = true
	}

	declared := false
	for _, k := range kindKeys {
		if seen[k] {
			declared = true
			break
		}
	}
	if !declared {
		diagnostics = append(diagnostics, newDiagnostic(start,
			protocol.DiagnosticSeverityWarning, "document declares neither asyncapi nor openapi"))
	}

	info, ok := lookup(ps, "info")
	if !ok {
		diagnostics = append(diagnostics, newDiagnostic(start,
			protocol.DiagnosticSeverityInformation, "info object is missing"))
		return diagnostics
	}
	if m := mapping(info.value); m == nil {
		diagnostics = append(diagnostics, newDiagnostic(doc.Range(info.node),
			protocol.DiagnosticSeverityWarning, "info is not a mapping"))
	} else if _, ok := lookup(pairs(m, src), "description"); !ok {
		diagnostics = append(diagnostics, newDiagnostic(doc.Range(info.node),
			protocol.DiagnosticSeverityHint, "info has no description"))
	}
	return diagnostics
}
