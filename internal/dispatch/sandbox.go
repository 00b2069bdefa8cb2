/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox is the pure policy check deciding whether a filesystem path is
// safe to execute. Dirs is the allow-list of base directories; both policy
// flags default on in production configuration.
type Sandbox struct {
	Dirs                []string
	RequireExec         bool
	RejectWorldWritable bool
}

// Validate resolves path and checks it against the sandbox policy,
// returning the canonical path to execute. Symlinks are resolved before
// the allow-list check so a link inside an allowed directory cannot point
// out of it.
func (sb Sandbox) Validate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: script path is empty", ErrConfiguration)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if !sb.inAllowedDir(resolved) {
		return "", fmt.Errorf("%w: %s is outside the script allow-list", ErrPermissionDenied, resolved)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, resolved)
	}

	if sb.RequireExec && info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrPermissionDenied, resolved)
	}

	if sb.RejectWorldWritable && info.Mode().Perm()&0o002 != 0 {
		return "", fmt.Errorf("%w: %s is world-writable", ErrPermissionDenied, resolved)
	}

	return resolved, nil
}

// inAllowedDir reports whether resolved sits strictly inside one of the
// allow-listed base directories. The trailing separator keeps a sibling
// directory sharing the prefix (e.g. /data/allowed-evil) from matching.
func (sb Sandbox) inAllowedDir(resolved string) bool {
	for _, dir := range sb.Dirs {
		base, err := filepath.EvalSymlinks(dir)
		if err != nil {
			base = filepath.Clean(dir)
		}
		if strings.HasPrefix(resolved, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
