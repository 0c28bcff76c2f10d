// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package errs provides the structured error taxonomy shared by every core
// component: InvalidInput, NotFound, Conflict, TransientBackend,
// FatalBackend, ConsistencyDrift.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry policy and CLI exit-code mapping.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindTransientBackend  Kind = "transient_backend"
	KindFatalBackend      Kind = "fatal_backend"
	KindConsistencyDrift  Kind = "consistency_drift"
)

// Error is the structured error surfaced to callers: {kind, uri?, cause}.
type Error struct {
	Kind  Kind
	URI   string
	Cause error
}

func (e *Error) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URI, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause with kind and an optional URI.
func New(kind Kind, uri string, cause error) *Error {
	return &Error{Kind: kind, URI: uri, Cause: cause}
}

func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the taxonomy says this error should be retried
// by the backoff policy (1s, 4s, 15s; max 3 attempts).
func Retryable(err error) bool {
	return Is(err, KindTransientBackend)
}

// ExitCode maps a Kind to a CLI exit code: 0 ok, 2 invalid args,
// 3 not found, 4 io, 5 backend error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return 5
	}
	switch e.Kind {
	case KindInvalidInput:
		return 2
	case KindNotFound:
		return 3
	case KindConflict:
		return 4
	case KindTransientBackend, KindFatalBackend, KindConsistencyDrift:
		return 5
	default:
		return 5
	}
}
