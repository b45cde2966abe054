// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns generated or templated document text into a
// hierarchy of numbered sections and emits a styled Word artifact.
package render

import (
	"regexp"
	"strings"
)

// Heading grammar: top-level sections are numbered "N. Title" and
// subsections "N.M Title", title starting with a capital letter. The parser
// is best-effort: it does not validate numbering continuity, nests at most
// two levels, and degrades to flat paragraphs when the text does not match.
var (
	topHeadingPattern = regexp.MustCompile(`^(\d+)\.\s+([A-Z].*)$`)
	subHeadingPattern = regexp.MustCompile(`^(\d+)\.(\d+)\s+([A-Z].*)$`)
)

// Paragraph is one body paragraph of a rendered section.
type Paragraph struct {
	// Text is the paragraph content.
	Text string

	// Bullet renders the paragraph as a bulleted list item.
	Bullet bool

	// Marker is an optional bold step label (e.g. "5.2.1") prefixed to the text.
	Marker string
}

// RenderedSection is a node of the parsed document tree: a numbered heading
// with its body paragraphs and, for top-level sections, any subsections.
// Depth is at most two, reflecting the "N." / "N.M" numbering convention.
type RenderedSection struct {
	// Label is the heading number: "5" for a section, "5.2" for a subsection.
	Label string

	// Title is the heading text after the number.
	Title string

	// Heading is the full heading line as it appeared (or should appear).
	Heading string

	// Paragraphs is the section body before any subsection.
	Paragraphs []Paragraph

	// Subsections nest numerically under a top-level section.
	Subsections []RenderedSection

	// Table is an optional table body (used by fixed templates).
	Table *Table
}

// Table is a simple header-plus-rows table.
type Table struct {
	Header []string
	Rows   [][]string
}

// Document is the transient parse tree handed to the artifact writer.
type Document struct {
	// Preamble holds unstyled paragraphs appearing before the first
	// numbered heading.
	Preamble []Paragraph

	// Sections are the top-level numbered sections in document order.
	Sections []RenderedSection
}

// ParseSections parses free text into the section tree. Lines matching the
// top-level heading pattern start a new section; within a section, lines
// matching the subheading pattern start a subsection; everything else
// becomes plain paragraphs attached to the nearest open scope. Blank lines
// are dropped.
func ParseSections(text string) Document {
	var doc Document
	var cur *RenderedSection
	var curSub *RenderedSection

	flushSub := func() {
		if cur != nil && curSub != nil {
			cur.Subsections = append(cur.Subsections, *curSub)
			curSub = nil
		}
	}
	flush := func() {
		flushSub()
		if cur != nil {
			doc.Sections = append(doc.Sections, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Subheading check first: "N.M Title" also begins with digits but
		// never matches the top-level "N. Title" shape.
		if m := subHeadingPattern.FindStringSubmatch(trimmed); m != nil && cur != nil {
			flushSub()
			curSub = &RenderedSection{
				Label:   m[1] + "." + m[2],
				Title:   m[3],
				Heading: trimmed,
			}
			continue
		}

		if m := topHeadingPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			cur = &RenderedSection{
				Label:   m[1],
				Title:   m[2],
				Heading: trimmed,
			}
			continue
		}

		p := Paragraph{Text: trimmed}
		switch {
		case curSub != nil:
			curSub.Paragraphs = append(curSub.Paragraphs, p)
		case cur != nil:
			cur.Paragraphs = append(cur.Paragraphs, p)
		default:
			doc.Preamble = append(doc.Preamble, p)
		}
	}

	flush()
	return doc
}

var titlePattern = regexp.MustCompile(`Title:\s*(.*)`)

// ExtractTitle pulls a "Title: ..." line out of the content, falling back
// to the given default.
func ExtractTitle(content, fallback string) string {
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return fallback
}
