package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// sidecar is the discovery file's JSON shape. Children that are not told a
// broker URL explicitly read this file to find one.
type sidecar struct {
	Port      int    `json:"port"`
	PID       int    `json:"pid"`
	HubID     string `json:"hubId"`
	StartedAt int64  `json:"startedAt"`
}

func sidecarPath() string {
	return filepath.Join(os.TempDir(), "pi-hive", "broker.json")
}

// writeSidecar publishes the discovery file. It is written exactly once, at
// startup; a failure to write is logged by the caller but never fatal.
func writeSidecar(port int, hubID string) error {
	path := sidecarPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("hub: create sidecar dir: %w", err)
	}

	data, err := json.Marshal(sidecar{
		Port:      port,
		PID:       os.Getpid(),
		HubID:     hubID,
		StartedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("hub: marshal sidecar: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("hub: write sidecar: %w", err)
	}
	return nil
}

// removeSidecar deletes the discovery file. A missing file is not an error.
func removeSidecar() error {
	err := os.Remove(sidecarPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hub: remove sidecar: %w", err)
	}
	return nil
}

// ReadSidecar locates a running hub's broker by reading the discovery file.
// Used by children that were not given an explicit broker URL.
func ReadSidecar() (brokerURL string, err error) {
	data, err := os.ReadFile(sidecarPath())
	if err != nil {
		return "", fmt.Errorf("hub: read sidecar: %w", err)
	}
	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("hub: parse sidecar: %w", err)
	}
	return fmt.Sprintf("ws://127.0.0.1:%d/", s.Port), nil
}
