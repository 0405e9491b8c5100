package server

import (
	"testing"
	"time"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()

	if cfg.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Address)
	}
	if cfg.ReadBufferSize != 4096 || cfg.WriteBufferSize != 4096 {
		t.Errorf("unexpected buffer sizes: %d/%d", cfg.ReadBufferSize, cfg.WriteBufferSize)
	}
	if cfg.SessionConfig == nil {
		t.Fatal("expected default session config")
	}
	if cfg.SessionConfig.HeartbeatInterval != 30*time.Second {
		t.Errorf("unexpected heartbeat interval: %v", cfg.SessionConfig.HeartbeatInterval)
	}
}

func TestFillDefaultsPreservesSetFields(t *testing.T) {
	cfg := &ServerConfig{
		Address:     ":3000",
		MaxSessions: 7,
	}
	cfg.fillDefaults()

	if cfg.Address != ":3000" {
		t.Errorf("explicit address must survive, got %s", cfg.Address)
	}
	if cfg.MaxSessions != 7 {
		t.Errorf("explicit limit must survive, got %d", cfg.MaxSessions)
	}
	if cfg.ReadBufferSize != 4096 {
		t.Errorf("unset field must get default, got %d", cfg.ReadBufferSize)
	}
	if cfg.SessionConfig == nil {
		t.Error("unset session config must get default")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("unset shutdown timeout must get default, got %v", cfg.ShutdownTimeout)
	}
}

func TestSessionConfigClone(t *testing.T) {
	orig := DefaultSessionConfig()
	clone := orig.Clone()

	clone.ReadTimeout = 1 * time.Second
	if orig.ReadTimeout == clone.ReadTimeout {
		t.Error("clone must not share state with the original")
	}

	var nilCfg *SessionConfig
	if nilCfg.Clone() != nil {
		t.Error("cloning nil must return nil")
	}
}
