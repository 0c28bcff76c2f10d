// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package markdown implements the Markdown Tree Builder: the
// canonical splitter/merger that turns one normalized Markdown document
// into the directory/file shape the content store persists as L1/L2
// nodes. Zero LLM calls; pure text and heading-tree manipulation using
// goldmark for structure.
package markdown

import (
	"fmt"
)

// Token thresholds
const (
	Small    = 800  // below this, a section is a coalescing candidate
	Split    = 4000 // above this, a section must become a directory or be paragraph-split
	Subsplit = 1024 // the Split ceiling applied one heading level deeper
)

// subsmall is the coalescing threshold applied one heading level deeper,
// tighter than Small so nested sections don't balloon into oversized
// merged files the way a top-level 800-token threshold would allow.
const subsmall = 512

// Node is one output entry of the temp tree: either a Markdown file
// (Content set, Children nil) or a directory (Children set, Content
// nil).
type Node struct {
	Name     string
	Content  []byte
	Children []*Node
}

func (n *Node) IsDir() bool { return n.Children != nil }

// Build runs the full splitting algorithm over one document and returns its
// root node. title seeds the filename when the whole document fits in a
// single file.
func Build(title string, data []byte) (*Node, error) {
	tokens := estimateTokens(string(data))
	if tokens <= Split {
		return &Node{Name: sanitizeName(title) + ".md", Content: data}, nil
	}

	sections := splitSections(data)
	dirName := sanitizeName(title)
	alloc := newNameAllocator()
	var children []*Node
	for _, sec := range sections {
		if sec.headingText == "" {
			// Leading content before the first top-level heading: folded
			// in as its own section, named after the document.
			if len(sec.raw) == 0 {
				continue
			}
			name := alloc.allocate(dirName)
			children = append(children, &Node{Name: name + ".md", Content: sec.raw})
			continue
		}
		child, err := buildSection(sec, 1, alloc)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	children = coalesceSmall(children, Small, alloc)

	return &Node{Name: dirName, Children: children}, nil
}

// buildSection decides file-vs-directory for one section, recursing into
// subsections. depth counts heading levels from the document root (1 for
// a top-level section) and selects the Split/Small pair in effect —
// Subsplit/subsmall one level deeper.
func buildSection(sec section, depth int, alloc *nameAllocator) (*Node, error) {
	name := sanitizeName(sec.headingText)
	subs := sec.subsections()
	splitLimit, smallLimit := thresholdsFor(depth)
	total := estimateTokens(string(sec.raw))

	hasRealSubsections := false
	for _, s := range subs {
		if s.headingText != "" {
			hasRealSubsections = true
			break
		}
	}

	switch {
	case hasRealSubsections && total > splitLimit:
		dirName := alloc.allocate(name)
		childAlloc := newNameAllocator()
		var children []*Node

		if direct := sec.directContent(); len(direct) > 0 {
			synthName := childAlloc.allocate(name)
			children = append(children, &Node{Name: synthName + ".md", Content: direct})
		}
		for _, sub := range subs {
			if sub.headingText == "" {
				continue
			}
			child, err := buildSection(sub, depth+1, childAlloc)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		_, childSmall := thresholdsFor(depth + 1)
		children = coalesceSmall(children, childSmall, childAlloc)
		return &Node{Name: dirName, Children: children}, nil

	case !hasRealSubsections && total > splitLimit:
		dirName := alloc.allocate(name)
		chunks := chunkParagraphs(sec.raw, splitLimit, smallLimit)
		var children []*Node
		for i, chunk := range chunks {
			children = append(children, &Node{Name: fmt.Sprintf("%s_%d.md", name, i+1), Content: chunk})
		}
		return &Node{Name: dirName, Children: children}, nil

	default:
		fname := alloc.allocate(name) + ".md"
		return &Node{Name: fname, Content: sec.raw}, nil
	}
}

func thresholdsFor(depth int) (split, small int) {
	if depth <= 1 {
		return Split, Small
	}
	return Subsplit, subsmall
}

// coalesceSmall implements the small-section coalescing: walk
// children in document order, greedily merging consecutive small files
// (not directories) whose cumulative size stays under limit.
func coalesceSmall(children []*Node, limit int, alloc *nameAllocator) []*Node {
	var out []*Node
	i := 0
	for i < len(children) {
		c := children[i]
		if c.IsDir() || estimateTokens(string(c.Content)) >= limit {
			out = append(out, c)
			i++
			continue
		}

		mergedNames := []string{trimExt(c.Name)}
		mergedContent := append([]byte(nil), c.Content...)
		cumulative := estimateTokens(string(mergedContent))
		j := i + 1
		for j < len(children) {
			next := children[j]
			if next.IsDir() {
				break
			}
			nextTokens := estimateTokens(string(next.Content))
			if nextTokens >= limit || cumulative+nextTokens >= limit {
				break
			}
			mergedNames = append(mergedNames, trimExt(next.Name))
			mergedContent = append(mergedContent, '\n')
			mergedContent = append(mergedContent, next.Content...)
			cumulative += nextTokens
			j++
		}

		if len(mergedNames) == 1 {
			out = append(out, c)
		} else {
			name := alloc.allocate(joinUnderscore(mergedNames))
			out = append(out, &Node{Name: name + ".md", Content: mergedContent})
		}
		i = j
	}
	return out
}

func trimExt(name string) string {
	const ext = ".md"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}

func joinUnderscore(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "_" + p
	}
	return out
}
