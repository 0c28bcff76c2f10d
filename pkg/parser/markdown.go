// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser passes a Markdown document through unchanged, only
// validating it is well-formed UTF-8 and deriving a title from its
// first heading for the Markdown Tree Builder to use when the document
// itself needs a name (the "sanitized title" for the single-file
// case).
type MarkdownParser struct{}

func (MarkdownParser) Parse(ctx context.Context, name string, data []byte) (*ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid utf-8", ErrCorruptInput, name)
	}
	title := titleFromMarkdown(data)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return &ParseResult{Title: title, Markdown: data}, nil
}

// titleFromMarkdown walks the document's AST looking for the first
// top-level heading and returns its plain text.
func titleFromMarkdown(data []byte) string {
	reader := text.NewReader(data)
	doc := goldmark.DefaultParser().Parse(reader)

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || title != "" {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(data))
			}
		}
		title = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return title
}
