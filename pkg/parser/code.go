// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// fenceLang maps a file extension to the language tag used on the
// Markdown fenced code block CodeParser emits.
var fenceLang = map[string]string{
	".go":     "go",
	".py":     "python",
	".js":     "javascript",
	".jsx":    "jsx",
	".ts":     "typescript",
	".tsx":    "tsx",
	".java":   "java",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".cc":     "cpp",
	".cxx":    "cpp",
	".rs":     "rust",
	".json":   "json",
	".yaml":   "yaml",
	".yml":    "yaml",
	".xml":    "xml",
	".html":   "html",
	".htm":    "html",
	".css":    "css",
	".sql":    "sql",
	".sh":     "bash",
	".bash":   "bash",
	".toml":   "toml",
}

// CodeParser wraps a source file as a single Markdown section whose
// body is one fenced code block, preserving the original content
// byte-for-byte.
type CodeParser struct{}

func (CodeParser) Parse(ctx context.Context, name string, data []byte) (*ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid utf-8", ErrCorruptInput, name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	lang := fenceLang[ext]
	title := filepath.Base(name)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n```%s\n", title, lang)
	b.Write(data)
	if len(data) == 0 || data[len(data)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("```\n")

	return &ParseResult{Title: title, Markdown: []byte(b.String())}, nil
}
