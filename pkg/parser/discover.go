// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one raw input file discovered under a directory root, ready
// to be handed to a Registry.
type File struct {
	Path string // absolute path on the local filesystem
	Rel  string // path relative to the discovery root
	Ext  string // lowercased extension, including the leading dot
}

// Discoverer walks a local directory tree to find the raw input files
// an `add-resource`/`add-skill` invocation should feed through the
// Parser Registry. The walk is synchronous and returns a sorted slice:
// a concurrent fan-out doesn't pull its weight for a single-pass,
// parser-bound traversal.
type Discoverer struct {
	// ExcludePatterns are glob patterns (matched against the base name,
	// or as a suffix match when the pattern starts with "*") skipped
	// during the walk.
	ExcludePatterns []string
	// IncludeHidden controls whether dotfiles/dotdirs are visited.
	IncludeHidden bool
	// MaxFileSize skips files larger than this many bytes when > 0.
	MaxFileSize int64
}

// NewDiscoverer returns a Discoverer configured with the defaults a
// resource/skill ingest uses: VCS and editor directories excluded,
// hidden entries skipped.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		ExcludePatterns: []string{".git/*", "node_modules/*", "*.tmp", "*.swp"},
	}
}

// Discover walks root and returns every matching regular file, sorted
// by relative path so ingestion order is deterministic.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := entry.Name()
		if path != root && !d.IncludeHidden && strings.HasPrefix(name, ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.matchesExclude(path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		if d.MaxFileSize > 0 {
			info, err := entry.Info()
			if err == nil && info.Size() > d.MaxFileSize {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, File{
			Path: path,
			Rel:  rel,
			Ext:  strings.ToLower(filepath.Ext(path)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

func (d *Discoverer) matchesExclude(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range d.ExcludePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if strings.HasPrefix(pattern, "*") {
			if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
				return true
			}
		}
	}
	return false
}
