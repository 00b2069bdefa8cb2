package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/models"
)

func scriptIntegration(path string) *models.Integration {
	return models.NewIntegration("test script", models.IntegrationScript, map[string]any{
		"path": path,
	})
}

func writeScriptFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "hook.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	return path
}

func TestScriptHandlerExitZeroIsSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "echo hello\n")

	h := newScriptHandler(scriptIntegration(path), events.Payload{}, Sandbox{Dirs: []string{dir}}, 5*time.Second, 1024)
	result, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.ExitCode != 0 {
		t.Fatalf("expected success with exit 0, got %+v", result)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
}

func TestScriptHandlerNonZeroExitIsFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "echo boom >&2\nexit 3\n")

	h := newScriptHandler(scriptIntegration(path), events.Payload{}, Sandbox{Dirs: []string{dir}}, 5*time.Second, 1024)
	result, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success || result.ExitCode != 3 {
		t.Fatalf("expected failure with exit 3, got %+v", result)
	}
	if !strings.Contains(result.Stderr, "boom") {
		t.Fatalf("expected stderr captured, got %q", result.Stderr)
	}
	if !strings.Contains(result.Error, "exited with code 3") {
		t.Fatalf("expected exit error message, got %q", result.Error)
	}
}

func TestScriptHandlerInjectsPayloadEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "echo \"$HEIMDALL_EVT_CHANNEL_NAME|$HEIMDALL_EVT_EMPTY|$HOME\"\n")

	payload := events.Payload{
		"channel_name": "BBC",
		"empty":        nil,
	}
	h := newScriptHandler(scriptIntegration(path), payload, Sandbox{Dirs: []string{dir}}, 5*time.Second, 1024)
	result, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// HOME must not leak; nil coerces to empty string.
	if strings.TrimSpace(result.Stdout) != "BBC||" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
}

func TestScriptHandlerTruncatesOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "printf 'aaaaaaaaaaaaaaaaaaaa'\n")

	h := newScriptHandler(scriptIntegration(path), events.Payload{}, Sandbox{Dirs: []string{dir}}, 5*time.Second, 10)
	result, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasSuffix(result.Stdout, truncationMarker) {
		t.Fatalf("expected truncation marker, got %q", result.Stdout)
	}
	if !strings.HasPrefix(result.Stdout, strings.Repeat("a", 10)) {
		t.Fatalf("expected 10 bytes kept, got %q", result.Stdout)
	}
}

func TestScriptHandlerTimeoutIsFailureNotError(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "sleep 5\n")

	h := newScriptHandler(scriptIntegration(path), events.Payload{}, Sandbox{Dirs: []string{dir}}, 100*time.Millisecond, 1024)
	result, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("timeout must not surface as error: %v", err)
	}
	if result.Success {
		t.Fatal("expected timeout to be a failure")
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Fatalf("expected timeout message, got %q", result.Error)
	}
}

func TestScriptHandlerValidationErrorsSurface(t *testing.T) {
	dir := t.TempDir()

	h := newScriptHandler(scriptIntegration(""), events.Payload{}, Sandbox{Dirs: []string{dir}}, time.Second, 1024)
	if _, err := h.Execute(context.Background()); err == nil {
		t.Fatal("expected configuration error for empty path")
	}
}

func TestScriptEnvIsMinimal(t *testing.T) {
	env := scriptEnv(events.Payload{"channel_name": "BBC", "count": 3})

	if len(env) != 3 {
		t.Fatalf("expected PATH plus two payload vars, got %v", env)
	}
	if env[0] != safePath {
		t.Fatalf("expected fixed PATH first, got %q", env[0])
	}

	joined := strings.Join(env, "\n")
	if !strings.Contains(joined, "HEIMDALL_EVT_CHANNEL_NAME=BBC") {
		t.Fatalf("missing channel var: %v", env)
	}
	if !strings.Contains(joined, "HEIMDALL_EVT_COUNT=3") {
		t.Fatalf("missing coerced int var: %v", env)
	}
}
