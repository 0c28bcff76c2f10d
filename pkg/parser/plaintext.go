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

// PlainTextParser wraps a .txt file as a single Markdown section titled
// after the file name, so it flows through the Markdown Tree Builder
// like any other document.
type PlainTextParser struct{}

func (PlainTextParser) Parse(ctx context.Context, name string, data []byte) (*ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid utf-8", ErrCorruptInput, name)
	}
	title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	md := fmt.Sprintf("# %s\n\n%s\n", title, string(data))
	return &ParseResult{Title: title, Markdown: []byte(md)}, nil
}
