// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openviking/openviking/pkg/vikingfs"
)

// ErrInvalidPackData is returned when pack data fails to parse or validate.
var ErrInvalidPackData = errors.New("invalid pack data")

// PackService exports and imports OVPack bundles: flat, self-contained
// snapshots of a VikingFS subtree, a natural consequence of rm/mv's
// recursive semantics over URI prefixes.
type PackService struct {
	fs *vikingfs.VikingFS
}

// OVPackHeader is an OVPack file's metadata.
type OVPackHeader struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

// OVPack is the full export payload: every leaf under one or more URI
// prefixes, flattened with its URI preserved so Import can replay the
// writes against any VikingFS.
type OVPack struct {
	Header OVPackHeader   `json:"header"`
	Files  []PackFile     `json:"files"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// PackFile is one leaf URI's content inside an OVPack.
type PackFile struct {
	URI     string `json:"uri"`
	Content string `json:"content"`
}

// NewPackService creates a pack service bundling subtrees of fs.
func NewPackService(fs *vikingfs.VikingFS) *PackService {
	return &PackService{fs: fs}
}

// Export walks each URI in roots recursively and bundles every leaf it
// finds into an OVPack. A root that is itself a leaf is bundled directly.
func (s *PackService) Export(ctx context.Context, roots []string) ([]byte, error) {
	if len(roots) == 0 {
		return nil, errors.New("service: no uris specified")
	}

	pack := OVPack{
		Header: OVPackHeader{
			Version:   "1.0",
			CreatedAt: time.Now().UTC(),
		},
		Files: make([]PackFile, 0),
		Meta:  make(map[string]any),
	}

	for _, root := range roots {
		if err := s.collect(ctx, root, &pack.Files); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(pack)
	if err != nil {
		return nil, fmt.Errorf("service: marshal pack: %w", err)
	}
	pack.Header.Checksum = checksum(data)
	return json.Marshal(pack)
}

// collect appends uri's content to files if it's a leaf, or recurses into
// its children if it's a directory.
func (s *PackService) collect(ctx context.Context, rawURI string, files *[]PackFile) error {
	entries, err := s.fs.Ls(ctx, dirForm(rawURI))
	if err != nil {
		// Not a directory (or empty): try it as a leaf.
		content, rerr := s.fs.Read(ctx, rawURI)
		if rerr != nil {
			return fmt.Errorf("service: export %s: %w", rawURI, err)
		}
		*files = append(*files, PackFile{URI: rawURI, Content: string(content)})
		return nil
	}

	base := strings.TrimSuffix(dirForm(rawURI), "/")
	for _, e := range entries {
		childURI := base + "/" + e.Name
		if e.IsDir {
			if err := s.collect(ctx, childURI+"/", files); err != nil {
				return err
			}
			continue
		}
		content, err := s.fs.Read(ctx, childURI)
		if err != nil {
			return fmt.Errorf("service: export %s: %w", childURI, err)
		}
		*files = append(*files, PackFile{URI: childURI, Content: string(content)})
	}
	return nil
}

// Import replays every leaf write in an OVPack against fs.
func (s *PackService) Import(ctx context.Context, data []byte) error {
	pack, err := parsePack(data)
	if err != nil {
		return err
	}
	for _, f := range pack.Files {
		if err := s.fs.Write(ctx, f.URI, []byte(f.Content)); err != nil {
			return fmt.Errorf("service: import %s: %w", f.URI, err)
		}
	}
	return nil
}

// Validate checks that data parses as a well-formed, non-empty OVPack
// without writing anything.
func (s *PackService) Validate(ctx context.Context, data []byte) (bool, string, error) {
	pack, err := parsePack(data)
	if err != nil {
		return false, err.Error(), nil
	}
	if len(pack.Files) == 0 {
		return false, "no files in pack", nil
	}
	return true, "valid", nil
}

func parsePack(data []byte) (*OVPack, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPackData
	}
	var pack OVPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackData, err)
	}
	if pack.Header.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidPackData)
	}
	return &pack, nil
}

func dirForm(rawURI string) string {
	if strings.HasSuffix(rawURI, "/") {
		return rawURI
	}
	return rawURI + "/"
}

func checksum(data []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String()[:8]
}
