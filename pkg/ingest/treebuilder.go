// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the TreeBuilder: the hand-off between a
// parsed document's temp tree and its permanent home in AGFS under a
// scope, plus the Parser→markdown.Build→TreeBuilder pipeline glue used by
// add_resource/add_skill.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/markdown"
	"github.com/openviking/openviking/pkg/parser"
	"github.com/openviking/openviking/pkg/uri"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// TreeBuilder moves a staged temp tree into AGFS under a scope and
// schedules semantic work for every directory it creates.
type TreeBuilder struct {
	FS *vikingfs.VikingFS
}

func New(fs *vikingfs.VikingFS) *TreeBuilder {
	return &TreeBuilder{FS: fs}
}

// Ingest runs the full pipeline for one source document: parse, split into
// a Markdown tree, stage it under viking://temp/<token>, then move it into
// scopeBase. Returns the final document root URI.
func (tb *TreeBuilder) Ingest(ctx context.Context, reg *parser.Registry, ext, name string, data []byte, token, scopeBase string) (string, error) {
	result, err := reg.Parse(ctx, ext, name, data)
	if err != nil {
		return "", err
	}
	node, err := markdown.Build(result.Title, []byte(result.Markdown))
	if err != nil {
		return "", errs.New(errs.KindFatalBackend, name, err)
	}
	if len(result.Assets) > 0 {
		node = attachAssets(node, result.Assets)
	}

	tempURI, err := tb.WriteTemp(ctx, token, node)
	if err != nil {
		return "", err
	}
	return tb.Move(ctx, tempURI, scopeBase)
}

// WriteTemp materializes a built Markdown tree under viking://temp/<token>/,
// the staging area Move reads its single document root from.
func (tb *TreeBuilder) WriteTemp(ctx context.Context, token string, root *markdown.Node) (string, error) {
	tempBase, err := uri.Parse(fmt.Sprintf("%stemp/%s/", uri.Prefix, token))
	if err != nil {
		return "", errs.New(errs.KindInvalidInput, token, err)
	}
	if err := tb.writeNode(ctx, tempBase.Path(), root); err != nil {
		return "", err
	}
	return tempBase.String(), nil
}

func (tb *TreeBuilder) writeNode(ctx context.Context, basePath string, n *markdown.Node) error {
	path := basePath + "/" + n.Name
	if !n.IsDir() {
		if err := tb.FS.Backend.Write(ctx, path, n.Content); err != nil {
			return errs.New(errs.KindFatalBackend, path, err)
		}
		return nil
	}
	if err := tb.FS.Backend.Mkdir(ctx, path); err != nil {
		return errs.New(errs.KindFatalBackend, path, err)
	}
	for _, c := range n.Children {
		if err := tb.writeNode(ctx, path, c); err != nil {
			return err
		}
	}
	return nil
}

// Move hands a parsed temp tree to AGFS: verify temp has exactly one top-level
// entry (the "document root" — a directory when markdown.Build split the
// source, a lone file when it fit under SPLIT unsplit), compute a
// uniquified target URI under scopeBase, copy it into AGFS preserving
// listing order, remove temp, and enqueue a SemanticMsg for every
// directory in the moved subtree. copySubtree and the leaf-file path both
// skip destinations that already exist, but the document root's name is
// made unique first, so re-running Move after a partial move copies into a
// new sibling (for example Name_2) instead of resuming into the earlier
// target, which is left as it was.
func (tb *TreeBuilder) Move(ctx context.Context, tempRoot, scopeBase string) (string, error) {
	temp, err := uri.Parse(tempRoot)
	if err != nil {
		return "", errs.New(errs.KindInvalidInput, tempRoot, err)
	}
	base, err := uri.Parse(scopeBase)
	if err != nil {
		return "", errs.New(errs.KindInvalidInput, scopeBase, err)
	}

	entries, err := tb.FS.Backend.List(ctx, temp.Path())
	if err != nil {
		return "", errs.New(errs.KindFatalBackend, tempRoot, err)
	}
	if len(entries) != 1 {
		return "", errs.New(errs.KindInvalidInput, tempRoot, fmt.Errorf("expected exactly one document root in temp, found %d", len(entries)))
	}
	docRoot := entries[0]

	targetName := tb.uniquify(ctx, base, docRoot.Name)
	target := base.Join(targetName)
	target.IsDir = docRoot.IsDir

	if docRoot.IsDir {
		if err := tb.copySubtree(ctx, docRoot.Path, target.Path()); err != nil {
			return "", err
		}
	} else {
		if err := tb.copyLeaf(ctx, docRoot.Path, target.Path()); err != nil {
			return "", err
		}
	}
	if err := tb.FS.Backend.Rm(ctx, temp.Path(), true); err != nil {
		return "", errs.New(errs.KindFatalBackend, tempRoot, err)
	}

	if tb.FS.Queue != nil {
		for _, d := range tb.collectDirs(ctx, target, docRoot.IsDir) {
			if err := tb.FS.Queue.Enqueue(ctx, d); err != nil {
				return "", errs.New(errs.KindTransientBackend, d, err)
			}
		}
	}
	return target.String(), nil
}

func (tb *TreeBuilder) copyLeaf(ctx context.Context, srcPath, dstPath string) error {
	if _, err := tb.FS.Backend.Stat(ctx, dstPath); err == nil {
		return nil
	}
	data, err := tb.FS.Backend.Read(ctx, srcPath)
	if err != nil {
		return errs.New(errs.KindFatalBackend, srcPath, err)
	}
	if err := tb.FS.Backend.Write(ctx, dstPath, data); err != nil {
		return errs.New(errs.KindFatalBackend, dstPath, err)
	}
	return nil
}

func (tb *TreeBuilder) uniquify(ctx context.Context, base *uri.URI, name string) string {
	stem, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	candidate := name
	for n := 2; ; n++ {
		if _, err := tb.FS.Backend.Stat(ctx, base.Join(candidate).Path()); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}

func (tb *TreeBuilder) copySubtree(ctx context.Context, srcPath, dstPath string) error {
	if err := tb.FS.Backend.Mkdir(ctx, dstPath); err != nil {
		return errs.New(errs.KindFatalBackend, dstPath, err)
	}
	entries, err := tb.FS.Backend.List(ctx, srcPath)
	if err != nil {
		return errs.New(errs.KindFatalBackend, srcPath, err)
	}
	for _, e := range entries {
		dstChild := dstPath + "/" + e.Name
		if e.IsDir {
			if err := tb.copySubtree(ctx, e.Path, dstChild); err != nil {
				return err
			}
			continue
		}
		if _, err := tb.FS.Backend.Stat(ctx, dstChild); err == nil {
			continue
		}
		data, err := tb.FS.Backend.Read(ctx, e.Path)
		if err != nil {
			return errs.New(errs.KindFatalBackend, e.Path, err)
		}
		if err := tb.FS.Backend.Write(ctx, dstChild, data); err != nil {
			return errs.New(errs.KindFatalBackend, dstChild, err)
		}
	}
	return nil
}

// collectDirs returns every directory in the moved subtree that needs a
// SemanticMsg, plus the scope root itself: a lone leaf document root has
// no directory of its own, but its presence still changes the scope
// root's overview, so the root is always included.
func (tb *TreeBuilder) collectDirs(ctx context.Context, root *uri.URI, rootIsDir bool) []string {
	scopeRoot, _ := root.Parent()
	if !rootIsDir {
		if scopeRoot == nil {
			return nil
		}
		return []string{scopeRoot.String()}
	}

	var dirs []string
	var walk func(u *uri.URI)
	walk = func(u *uri.URI) {
		dirs = append(dirs, u.String())
		entries, err := tb.FS.Backend.List(ctx, u.Path())
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir {
				walk(u.Join(e.Name))
			}
		}
	}
	walk(root)
	if scopeRoot != nil && len(dirs) > 0 && dirs[len(dirs)-1] != scopeRoot.String() {
		dirs = append(dirs, scopeRoot.String())
	}
	return dirs
}

// attachAssets folds a parser's non-Markdown side files into the tree
// under an "assets" subdirectory of the document root, wrapping a
// single-file root into a directory first since Move requires exactly one
// top-level document root regardless of whether the document itself
// needed splitting.
func attachAssets(root *markdown.Node, assets []parser.Asset) *markdown.Node {
	if !root.IsDir() {
		root = &markdown.Node{Name: trimMDExt(root.Name), Children: []*markdown.Node{
			{Name: "index.md", Content: root.Content},
		}}
	}
	assetsDir := &markdown.Node{Name: "assets"}
	for _, a := range assets {
		assetsDir.Children = append(assetsDir.Children, &markdown.Node{Name: a.RelPath, Content: a.Data})
	}
	root.Children = append(root.Children, assetsDir)
	return root
}

func trimMDExt(name string) string {
	const ext = ".md"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
