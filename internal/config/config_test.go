package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"HEIMDALL_DB_BACKEND",
		"HEIMDALL_BUS_BACKEND",
		"HEIMDALL_SCRIPT_DIRS",
		"HEIMDALL_SCRIPT_TIMEOUT_SECONDS",
		"HEIMDALL_SCRIPT_REQUIRE_EXEC",
		"HEIMDALL_SCRIPT_REJECT_WORLD_WRITABLE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("unexpected default db backend: %s", cfg.DBBackend)
	}
	if cfg.ScriptTimeout != 30*time.Second {
		t.Fatalf("unexpected default script timeout: %s", cfg.ScriptTimeout)
	}
	if !cfg.ScriptRequireExec || !cfg.ScriptRejectWorldWritable {
		t.Fatal("expected sandbox policies to default on")
	}
	if cfg.BusBackend != BusMemory {
		t.Fatalf("unexpected default bus backend: %s", cfg.BusBackend)
	}
}

func TestLoadParsesScriptDirs(t *testing.T) {
	t.Setenv("HEIMDALL_SCRIPT_DIRS", "/data/scripts:/opt/hooks/:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.ScriptDirs) != 2 {
		t.Fatalf("expected 2 script dirs, got %v", cfg.ScriptDirs)
	}
	if cfg.ScriptDirs[1] != "/opt/hooks" {
		t.Fatalf("expected cleaned dir, got %q", cfg.ScriptDirs[1])
	}
}

func TestLoadRejectsRelativeScriptDir(t *testing.T) {
	t.Setenv("HEIMDALL_SCRIPT_DIRS", "relative/scripts")

	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail for relative script dir")
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("HEIMDALL_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail for unknown db backend")
	}
}
