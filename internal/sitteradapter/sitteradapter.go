// Package sitteradapter converts between tree-sitter byte coordinates and
// LSP UTF-16 coordinates.
package sitteradapter

import (
	sitter "github.com/smacker/go-tree-sitter"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document indexes the line starts of a text so conversions do not rescan it.
type Document struct {
	text   string
	starts []int
}

func NewDocument(text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{text: text, starts: starts}
}

func (d *Document) line(row int) string {
	if row >= len(d.starts) {
		row = len(d.starts) - 1
	}
	end := len(d.text)
	if row+1 < len(d.starts) {
		end = d.starts[row+1] - 1
	}
	return d.text[d.starts[row]:end]
}

// Offset returns the byte offset of an LSP position. Positions past the end
// of a line or of the document are clamped.
func (d *Document) Offset(pos protocol.Position) int {
	row := int(pos.Line)
	if row >= len(d.starts) {
		return len(d.text)
	}
	line := d.line(row)

	var units uint32
	for i, r := range line {
		n := uint32(1)
		if r > 0xFFFF {
			n = 2
		}
		if units+n > pos.Character {
			return d.starts[row] + i
		}
		units += n
	}
	return d.starts[row] + len(line)
}

// Position converts a tree-sitter point to an LSP position.
func (d *Document) Position(pt sitter.Point) protocol.Position {
	row := int(pt.Row)
	if row >= len(d.starts) {
		row = len(d.starts) - 1
	}
	line := d.line(row)
	column := int(pt.Column)
	if column > len(line) {
		column = len(line)
	}

	var units uint32
	for _, r := range line[:column] {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return protocol.Position{Line: uint32(row), Character: units}
}

// Range converts the span of node.
func (d *Document) Range(node *sitter.Node) protocol.Range {
	return protocol.Range{
		Start: d.Position(node.StartPoint()),
		End:   d.Position(node.EndPoint()),
	}
}

// ApplyChange applies one LSP content change to document. A change without
// a range replaces the whole text.
func ApplyChange(document string, change any) string {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			return c.Text
		}
		d := NewDocument(document)
		start, end := d.Offset(c.Range.Start), d.Offset(c.Range.End)
		if end < start {
			start, end = end, start
		}
		return document[:start] + c.Text + document[end:]
	case protocol.TextDocumentContentChangeEventWhole:
		return c.Text
	default:
		return document
	}
}
