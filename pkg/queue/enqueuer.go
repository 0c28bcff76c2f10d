// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"

	"github.com/openviking/openviking/pkg/uri"
)

// Enqueuer adapts a Backend to vikingfs.Enqueuer's single-argument
// Enqueue(ctx, dirURI), deriving scope and depth from the URI itself so
// every write()/TreeBuilder call site only ever needs to pass the
// directory URI.
type Enqueuer struct {
	Backend Backend
}

func NewEnqueuer(b Backend) *Enqueuer {
	return &Enqueuer{Backend: b}
}

func (e *Enqueuer) Enqueue(ctx context.Context, dirURI string) error {
	u, err := uri.Parse(dirURI)
	if err != nil {
		return err
	}
	return e.Backend.Enqueue(ctx, string(u.Scope), dirURI, u.Depth())
}
