package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Bind != "127.0.0.1:8787" {
		t.Errorf("Bind = %q, want default", cfg.Broker.Bind)
	}
	if cfg.Broker.HeartbeatTickSeconds != 30 || cfg.Broker.HeartbeatTimeoutSeconds != 60 {
		t.Errorf("heartbeat defaults = %d/%d, want 30/60", cfg.Broker.HeartbeatTickSeconds, cfg.Broker.HeartbeatTimeoutSeconds)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.DMTimeoutSeconds != 120 {
		t.Errorf("DMTimeoutSeconds = %d, want 120", cfg.Client.DMTimeoutSeconds)
	}
}

func TestLoadPartialFileFillsRemainingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hived.yaml")
	const body = `
broker:
  bind: "0.0.0.0:9999"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Bind != "0.0.0.0:9999" {
		t.Errorf("Bind = %q, want 0.0.0.0:9999", cfg.Broker.Bind)
	}
	if cfg.Broker.HeartbeatTickSeconds != 30 {
		t.Errorf("HeartbeatTickSeconds = %d, want default 30", cfg.Broker.HeartbeatTickSeconds)
	}
	if cfg.Client.ListTimeoutSeconds != 2 {
		t.Errorf("ListTimeoutSeconds = %d, want default 2", cfg.Client.ListTimeoutSeconds)
	}
}

func TestHeartbeatDurations(t *testing.T) {
	cfg := Default()
	if got := cfg.HeartbeatTick(); got.Seconds() != 30 {
		t.Errorf("HeartbeatTick = %v, want 30s", got)
	}
	if got := cfg.HeartbeatTimeout(); got.Seconds() != 60 {
		t.Errorf("HeartbeatTimeout = %v, want 60s", got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hived.yaml")
	if err := os.WriteFile(path, []byte("broker: [not a map"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
