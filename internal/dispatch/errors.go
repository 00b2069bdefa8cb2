/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import "errors"

// Sentinel errors for handler resolution and execution. Callers match with
// errors.Is; the dispatcher converts all of them into failed delivery logs.
var (
	// ErrConfiguration indicates a missing or invalid required config key.
	ErrConfiguration = errors.New("invalid integration configuration")

	// ErrNotFound indicates the configured script path does not exist.
	ErrNotFound = errors.New("script not found")

	// ErrPermissionDenied indicates a path outside the allow-list, a
	// non-executable file, or a world-writable file.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout indicates a script ran past its wall-clock limit. It is
	// carried in the Result's error message, not returned, since a timeout
	// is an execution failure rather than a crash.
	ErrTimeout = errors.New("script timed out")

	// ErrTransport indicates a webhook network or connection failure.
	ErrTransport = errors.New("webhook transport failure")

	// ErrUnsupportedType indicates no handler exists for the integration type.
	ErrUnsupportedType = errors.New("unsupported integration type")
)
