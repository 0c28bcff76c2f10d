// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package uri implements the viking:// URI grammar and scope model:
// parsing, normalization (NFC, trailing-slash-as-directory), and
// parent/prefix computation used throughout VikingFS.
package uri

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scope is a top-level namespace segment of a URI.
type Scope string

const (
	ScopeResources Scope = "resources"
	ScopeUser      Scope = "user"
	ScopeAgent     Scope = "agent"
	ScopeSession   Scope = "session"
	ScopeQueue     Scope = "queue"
	ScopeTemp      Scope = "temp"
)

const Prefix = "viking://"

func validScope(s Scope) bool {
	switch s {
	case ScopeResources, ScopeUser, ScopeAgent, ScopeSession, ScopeQueue, ScopeTemp:
		return true
	default:
		return false
	}
}

// URI is a parsed, normalized viking:// URI.
type URI struct {
	Scope     Scope
	Segments  []string
	IsDir     bool
	raw       string // normalized string form, cached
}

// Parse validates and normalizes a raw URI string per the ABNF grammar:
// case-sensitive, Unicode NFC, no "/" or control characters inside a
// segment, trailing slash denotes a directory.
func Parse(s string) (*URI, error) {
	if !strings.HasPrefix(s, Prefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidURI, Prefix)
	}
	s = norm.NFC.String(s)
	body := strings.TrimPrefix(s, Prefix)
	isDir := strings.HasSuffix(body, "/") || body == ""
	body = strings.Trim(body, "/")

	if body == "" {
		return nil, fmt.Errorf("%w: missing scope", ErrInvalidURI)
	}

	parts := strings.Split(body, "/")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty path segment", ErrInvalidURI)
		}
		if err := validateSegment(p); err != nil {
			return nil, err
		}
	}

	scope := Scope(parts[0])
	if !validScope(scope) {
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidURI, parts[0])
	}

	u := &URI{Scope: scope, Segments: parts[1:], IsDir: isDir}
	u.raw = u.String()
	return u, nil
}

func validateSegment(seg string) error {
	for _, r := range seg {
		if r < 0x21 || r == 0x2F {
			return fmt.Errorf("%w: control or '/' character in segment %q", ErrInvalidURI, seg)
		}
	}
	return nil
}

// String renders the canonical normalized form.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(string(u.Scope))
	for _, s := range u.Segments {
		b.WriteByte('/')
		b.WriteString(s)
	}
	if u.IsDir {
		b.WriteByte('/')
	}
	return b.String()
}

// Parent returns the parent URI, or (nil, true) if u is already scope root.
func (u *URI) Parent() (*URI, bool) {
	if len(u.Segments) == 0 {
		return nil, true
	}
	p := &URI{Scope: u.Scope, Segments: append([]string{}, u.Segments[:len(u.Segments)-1]...), IsDir: true}
	return p, false
}

// Join appends a segment, returning a new URI.
func (u *URI) Join(seg string) *URI {
	return &URI{Scope: u.Scope, Segments: append(append([]string{}, u.Segments...), seg), IsDir: true}
}

// HasPrefix reports whether u lies under prefix (equal or descendant).
func (u *URI) HasPrefix(prefix *URI) bool {
	if u.Scope != prefix.Scope || len(u.Segments) < len(prefix.Segments) {
		return false
	}
	for i, s := range prefix.Segments {
		if u.Segments[i] != s {
			return false
		}
	}
	return true
}

// Depth is the distance from the scope root, used for SemanticMsg.depth
// and retrieval tie-breaks.
func (u *URI) Depth() int { return len(u.Segments) }

// Path renders the AGFS byte-path this URI maps to: scope/segment/....
func (u *URI) Path() string {
	parts := append([]string{string(u.Scope)}, u.Segments...)
	return strings.Join(parts, "/")
}

// Name is the last path segment, or "" at scope root.
func (u *URI) Name() string {
	if len(u.Segments) == 0 {
		return ""
	}
	return u.Segments[len(u.Segments)-1]
}

// RewritePrefix rewrites u's leading "from" prefix to "to", used by mv
// to rename every descendant's URI.
func RewritePrefix(u, from, to *URI) (*URI, bool) {
	if !u.HasPrefix(from) {
		return u, false
	}
	suffix := u.Segments[len(from.Segments):]
	out := &URI{Scope: to.Scope, Segments: append(append([]string{}, to.Segments...), suffix...), IsDir: u.IsDir}
	return out, true
}

var ErrInvalidURI = fmt.Errorf("invalid URI")
