// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package parser implements the Parser Registry: a static dispatch
// table from file extension to Parser; there is no MIME-type lookup.
// Each Parser turns one raw input file into an in-memory ParseResult: a
// normalized Markdown document plus any binary assets the Markdown Tree
// Builder (pkg/markdown) will later split and place under AGFS.
//
// Parsers never call an LLM and never touch AGFS; a ParseResult carries
// no temp uri, and staging it under viking://temp is done by the caller
// (pkg/ingest's WriteTemp).
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure modes a Parser may return, per the registry contract.
var (
	ErrUnsupportedFormat = errors.New("parser: unsupported format")
	ErrCorruptInput      = errors.New("parser: corrupt input")
	ErrIOError           = errors.New("parser: io error")
)

// Asset is a binary file preserved alongside the normalized Markdown,
// addressed relative to the ParseResult's root (e.g. an image referenced
// by a Markdown document).
type Asset struct {
	RelPath string
	Data    []byte
}

// ParseResult is a Parser's output: one normalized Markdown document
// (the input to the Markdown Tree Builder) plus zero or more preserved
// binary assets.
type ParseResult struct {
	Title    string
	Markdown []byte
	Assets   []Asset
}

// Parser converts one raw input file into a ParseResult. name is the
// source file's base name (used for title derivation when the format
// has no better title source); data is its raw bytes.
type Parser interface {
	Parse(ctx context.Context, name string, data []byte) (*ParseResult, error)
}

// Registry dispatches by file extension to a Parser. Entries are
// registered once at construction and looked up by a plain map, since
// the set of supported formats is fixed at build time.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry builds the default registry: Markdown passes through
// unchanged, plain text and source code are wrapped in a fenced
// Markdown document. Extensions are matched case-insensitively and
// include the leading dot (e.g. ".md").
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	md := &MarkdownParser{}
	text := &PlainTextParser{}
	code := &CodeParser{}

	r.Register(".md", md)
	r.Register(".markdown", md)
	r.Register(".txt", text)

	for _, ext := range []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h",
		".cpp", ".cc", ".cxx", ".rs", ".json", ".yaml", ".yml", ".xml",
		".html", ".htm", ".css", ".sql", ".sh", ".bash", ".toml",
	} {
		r.Register(ext, code)
	}
	return r
}

// Register binds an extension (including its leading dot) to a Parser,
// overwriting any existing binding. Exported so a deployment can extend
// the default table (e.g. a PDF or DOCX parser) without forking it.
func (r *Registry) Register(ext string, p Parser) {
	r.byExt[ext] = p
}

// Lookup returns the Parser bound to ext, or ErrUnsupportedFormat.
func (r *Registry) Lookup(ext string) (Parser, error) {
	p, ok := r.byExt[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return p, nil
}

// Parse looks up a Parser for ext and runs it.
func (r *Registry) Parse(ctx context.Context, ext, name string, data []byte) (*ParseResult, error) {
	p, err := r.Lookup(ext)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, name, data)
}
