package hub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielstarman/hive/internal/broker"
)

func TestStartPublishesSidecarAndCloseRemovesIt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := Start(ctx, broker.Config{HeartbeatTick: time.Hour, HeartbeatTimeout: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	data, err := os.ReadFile(sidecarPath())
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("sidecar not valid JSON: %v", err)
	}
	if s.Port == 0 {
		t.Error("sidecar port is 0")
	}
	if s.PID != os.Getpid() {
		t.Errorf("sidecar pid = %d, want %d", s.PID, os.Getpid())
	}
	if s.HubID != h.ID {
		t.Errorf("sidecar hubId = %q, want %q", s.HubID, h.ID)
	}

	url, err := ReadSidecar()
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}
	if url != h.BrokerURL() {
		t.Errorf("ReadSidecar = %q, want %q", url, h.BrokerURL())
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(sidecarPath()); !os.IsNotExist(err) {
		t.Errorf("sidecar still present after Close: err=%v", err)
	}
}

func TestDisconnectAgentByNameUnknownReturnsFalse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := Start(ctx, broker.Config{HeartbeatTick: time.Hour, HeartbeatTimeout: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Close()

	if h.DisconnectAgentByName("nobody") {
		t.Error("DisconnectAgentByName(unknown) = true, want false")
	}
}
