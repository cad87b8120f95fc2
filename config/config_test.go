package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beanbocchi/genestack/internal/model"
)

const settings = `
log:
  level: debug
  format: json
client:
  timeout: 30s
  maxUploadHops: 50
  progress: dots
defaultUser: Work
users:
  work:
    email: alice@example.com
    host: https://platform.genestack.org/endpoint
    password: secret
  local:
    email: bob@example.com
    host: http://localhost:8080/endpoint
`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSettings(t, settings))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Client.Timeout)
	}
	if cfg.Client.MaxUploadHops != 50 || cfg.Client.Progress != "dots" {
		t.Errorf("unexpected client config: %+v", cfg.Client)
	}

	work, ok := cfg.User("WORK")
	if !ok {
		t.Fatal("user work not found")
	}
	if !work.Password.Valid || work.Password.String != "secret" {
		t.Errorf("work password = %+v", work.Password)
	}

	local, ok := cfg.User("local")
	if !ok {
		t.Fatal("user local not found")
	}
	if local.Password.Valid {
		t.Errorf("local password should be absent, got %q", local.Password.String)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Client.MaxUploadHops != 1000 || cfg.Client.Progress != "auto" || cfg.Client.Timeout != 0 {
		t.Errorf("unexpected client defaults: %+v", cfg.Client)
	}
	if len(cfg.Users) != 0 {
		t.Errorf("expected no users, got %v", cfg.Users)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GENESTACK_LOG_LEVEL", "warn")
	t.Setenv("GENESTACK_CLIENT_PROGRESS", "none")

	cfg, err := Load(writeSettings(t, settings))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Client.Progress != "none" {
		t.Errorf("progress = %q, want none", cfg.Client.Progress)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "missing explicit file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: model.ErrConfiguration,
		},
		{
			name: "invalid log level",
			path: func(t *testing.T) string {
				return writeSettings(t, "log:\n  level: loud\n")
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "user without host",
			path: func(t *testing.T) string {
				return writeSettings(t, "users:\n  work:\n    email: alice@example.com\n")
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "user with bare host",
			path: func(t *testing.T) string {
				return writeSettings(t, "users:\n  work:\n    email: alice@example.com\n    host: platform.genestack.org\n")
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "unknown default user",
			path: func(t *testing.T) string {
				return writeSettings(t, "defaultUser: ghost\n")
			},
			wantErr: model.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
