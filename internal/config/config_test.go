package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves into a scratch directory so Load never picks up a real
// config file from the repo.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	chdir(t)
	t.Setenv("CONFIG_ENV", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AckTimeout != 8*time.Second {
		t.Errorf("ack timeout = %v, want 8s", cfg.AckTimeout)
	}
	if cfg.CreatePollAttempts != 6 || cfg.CreatePollInterval != time.Second {
		t.Errorf("create poll = %d x %v, want 6 x 1s", cfg.CreatePollAttempts, cfg.CreatePollInterval)
	}
	if cfg.ReconnectPause != time.Second {
		t.Errorf("reconnect pause = %v, want 1s", cfg.ReconnectPause)
	}
	if cfg.SendBuffer != 32 || cfg.ReadLimit != 32768 || cfg.PingPeriod != 54*time.Second {
		t.Errorf("socket knobs = %d/%d/%v", cfg.SendBuffer, cfg.ReadLimit, cfg.PingPeriod)
	}
	if cfg.APIBaseURL == "" || cfg.SocketURL == "" {
		t.Error("default endpoints missing")
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CONFIG_ENV", "test")

	yaml := []byte("mode: debug\nack_timeout: 3s\ncreate_poll_attempts: 2\nport: 9191\napi_base_url: http://example.test/api/sessions\nsocket_url: ws://example.test/api/ws\n")
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "debug" || cfg.AckTimeout != 3*time.Second || cfg.CreatePollAttempts != 2 || cfg.Port != 9191 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Knobs absent from the file keep their defaults.
	if cfg.ReconnectPause != time.Second {
		t.Fatalf("reconnect pause = %v, want default 1s", cfg.ReconnectPause)
	}
}
