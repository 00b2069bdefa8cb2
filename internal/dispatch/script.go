/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/models"
)

// envPrefix namespaces payload entries injected into the script
// environment.
const envPrefix = "HEIMDALL_EVT_"

// safePath is the only inherited-looking variable the child process sees.
const safePath = "PATH=/usr/local/bin:/usr/bin:/bin"

// truncationMarker is appended to captured output that was cut.
const truncationMarker = "... [truncated]"

// scriptHandler runs a locally configured script inside the sandbox with a
// minimal environment and a wall-clock timeout.
type scriptHandler struct {
	integration *models.Integration
	payload     any
	sandbox     Sandbox
	timeout     time.Duration
	maxOutput   int
}

func newScriptHandler(integration *models.Integration, payload any, sandbox Sandbox, timeout time.Duration, maxOutput int) *scriptHandler {
	return &scriptHandler{
		integration: integration,
		payload:     payload,
		sandbox:     sandbox,
		timeout:     timeout,
		maxOutput:   maxOutput,
	}
}

// Execute validates the configured path and runs the script. A timeout is
// an execution failure carried in the result, not an error.
func (h *scriptHandler) Execute(ctx context.Context) (*Result, error) {
	resolved, err := h.sandbox.Validate(h.integration.ScriptPath())
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, resolved)
	cmd.Dir = filepath.Dir(resolved)
	cmd.Env = scriptEnv(h.payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &Result{
		Stdout: truncate(stdout.String(), h.maxOutput),
		Stderr: truncate(stderr.String(), h.maxOutput),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Success = false
		result.ExitCode = -1
		result.Error = fmt.Errorf("%w after %s", ErrTimeout, h.timeout).Error()
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Success = false
			result.Error = fmt.Sprintf("script exited with code %d", result.ExitCode)
			return result, nil
		}
		return nil, fmt.Errorf("start script %s: %w", resolved, runErr)
	}

	result.ExitCode = 0
	result.Success = true
	return result, nil
}

// scriptEnv builds the minimal child environment: a fixed PATH plus one
// namespaced variable per payload entry. Nil values become empty strings;
// everything else is coerced to text.
func scriptEnv(payload any) []string {
	env := []string{safePath}

	raw, ok := payload.(events.Payload)
	if !ok {
		return env
	}

	for key, value := range raw {
		name := envPrefix + strings.ToUpper(key)
		if value == nil {
			env = append(env, name+"=")
			continue
		}
		env = append(env, fmt.Sprintf("%s=%v", name, value))
	}
	return env
}

// truncate cuts s to max bytes and appends the truncation marker.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + truncationMarker
}
