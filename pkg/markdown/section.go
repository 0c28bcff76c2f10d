// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// section is one heading-delimited span of a document: headingText is
// empty for the document's own leading content (before its first
// heading). raw is the exact source bytes of the section, including its
// own heading line and everything up to (not including) the next
// sibling-or-shallower heading.
type section struct {
	level       int
	headingText string
	raw         []byte
	children    []section // subsections at the next deeper level found
}

// splitSections parses data and returns its top-level sections: either a
// single synthetic section holding the whole document (no headings), or
// one section per heading at the document's shallowest heading level.
func splitSections(data []byte) []section {
	reader := gmtext.NewReader(data)
	doc := goldmark.DefaultParser().Parse(reader)

	var headings []*ast.Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, h)
		}
	}
	if len(headings) == 0 {
		return []section{{raw: data}}
	}

	minLevel := headings[0].Level
	for _, h := range headings {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}

	return splitAtLevel(data, doc, minLevel)
}

// splitAtLevel cuts doc's children into sections at every heading whose
// level equals targetLevel (siblings strictly deeper belong to the
// preceding section's body, to be further split recursively by the
// caller).
func splitAtLevel(data []byte, doc ast.Node, targetLevel int) []section {
	type cut struct {
		offset int
		level  int
		text   string
	}
	var cuts []cut
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != targetLevel {
			continue
		}
		cuts = append(cuts, cut{offset: headingLineStart(data, h), level: h.Level, text: headingPlainText(data, h)})
	}

	if len(cuts) == 0 {
		return []section{{raw: data}}
	}

	var sections []section
	if cuts[0].offset > 0 {
		sections = append(sections, section{raw: data[:cuts[0].offset]})
	}
	for i, c := range cuts {
		end := len(data)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		sections = append(sections, section{level: c.level, headingText: c.text, raw: data[c.offset:end]})
	}
	return sections
}

// headingLineStart returns the byte offset of the start of the source
// line containing h's heading marker. goldmark's Lines() gives the text
// segment after the "#"s, so this backs up to the preceding newline.
func headingLineStart(data []byte, h *ast.Heading) int {
	lines := h.Lines()
	if lines.Len() == 0 {
		return 0
	}
	start := lines.At(0).Start
	for start > 0 && data[start-1] != '\n' {
		start--
	}
	return start
}

func headingPlainText(data []byte, h *ast.Heading) string {
	var b bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(data))
		}
	}
	return b.String()
}

// subsections re-parses a section's raw body (skipping its own heading
// line) to find its next-level-deeper children, used to decide between
// the directory and single-file emission rules.
func (s section) subsections() []section {
	body := s.raw
	if s.headingText != "" {
		if i := bytes.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = nil
		}
	}
	if len(body) == 0 {
		return nil
	}

	reader := gmtext.NewReader(body)
	doc := goldmark.DefaultParser().Parse(reader)

	var headings []*ast.Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, h)
		}
	}
	if len(headings) == 0 {
		return nil
	}
	minLevel := headings[0].Level
	for _, h := range headings {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}
	return splitAtLevel(body, doc, minLevel)
}

// directContent returns the section's body text before its first
// subheading: its own synthetic "direct content", rule 2.
func (s section) directContent() []byte {
	subs := s.subsections()
	if len(subs) == 0 {
		return s.raw
	}
	// The first returned subsection with no headingText (if present) is
	// exactly this direct content, emitted by splitAtLevel when body text
	// precedes the first heading.
	if subs[0].headingText == "" {
		return subs[0].raw
	}
	// No leading text: direct content is just the heading line itself.
	if s.headingText == "" {
		return nil
	}
	if i := bytes.IndexByte(s.raw, '\n'); i >= 0 {
		return s.raw[:i+1]
	}
	return s.raw
}
