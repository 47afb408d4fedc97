package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"skillset/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skillset.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "[broker]\nsocket_path = \"/tmp/tangent.sock\"\n")

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Broker.SocketPath != "/tmp/tangent.sock" {
		t.Fatalf("socket path = %q", cfg.Broker.SocketPath)
	}
	if cfg.DialTimeout() != 5*time.Second {
		t.Fatalf("dial timeout = %s", cfg.DialTimeout())
	}
	if cfg.CallTimeout() != 0 {
		t.Fatalf("expected no call timeout by default, got %s", cfg.CallTimeout())
	}
	if cfg.Broker.MaxFrameBytes != 16<<20 {
		t.Fatalf("max frame bytes = %d", cfg.Broker.MaxFrameBytes)
	}
	if cfg.Broker.ReuseConnection {
		t.Fatal("expected connection reuse off by default")
	}
	if cfg.Logging.Enabled || cfg.Logging.Format != "auto" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if len(cfg.Logging.Output) != 1 || cfg.Logging.Output[0] != "stderr" {
		t.Fatalf("unexpected logging output: %v", cfg.Logging.Output)
	}
}

func TestLoadExpandsTildeSocketPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "[broker]\nsocket_path = \"~/run/broker.sock\"\n")

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(home, "run", "broker.sock"); cfg.Broker.SocketPath != want {
		t.Fatalf("socket path = %q, want %q", cfg.Broker.SocketPath, want)
	}
}

func TestLoadNormalizesLogging(t *testing.T) {
	path := writeConfig(t, `
[broker]
socket_path = "/tmp/tangent.sock"
call_timeout_ms = 1500
reuse_connection = true

[logging]
enabled = true
level = " DEBUG "
format = "JSON"
output = ["", " stderr "]
`)

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CallTimeout() != 1500*time.Millisecond {
		t.Fatalf("call timeout = %s", cfg.CallTimeout())
	}
	if !cfg.Broker.ReuseConnection {
		t.Fatal("expected reuse_connection to be honoured")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if len(cfg.Logging.Output) != 1 || cfg.Logging.Output[0] != "stderr" {
		t.Fatalf("unexpected outputs: %q", cfg.Logging.Output)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{name: "missing socket", contents: "[broker]\n", want: "broker.socket_path is required"},
		{name: "unknown key", contents: "[broker]\nsocket_path = \"/tmp/a.sock\"\nsocket = \"x\"\n", want: "unknown keys"},
		{name: "negative call timeout", contents: "[broker]\nsocket_path = \"/tmp/a.sock\"\ncall_timeout_ms = -1\n", want: "call_timeout_ms"},
		{name: "huge frames", contents: "[broker]\nsocket_path = \"/tmp/a.sock\"\nmax_frame_bytes = 2147483647\n", want: "max_frame_bytes"},
		{name: "bad format", contents: "[broker]\nsocket_path = \"/tmp/a.sock\"\n[logging]\nformat = \"xml\"\n", want: "logging.format"},
		{name: "bad level", contents: "[broker]\nsocket_path = \"/tmp/a.sock\"\n[logging]\nlevel = \"trace\"\n", want: "logging.level"},
		{name: "long socket path", contents: "[broker]\nsocket_path = \"/tmp/" + strings.Repeat("s", 200) + ".sock\"\n", want: "unix sockets allow"},
		{name: "malformed toml", contents: "[broker\n", want: "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := config.Load(writeConfig(t, tt.contents))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestLoadRequiresExplicitPath(t *testing.T) {
	if _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "skillset.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if cfg.Broker.SocketPath != "/tmp/tangent.sock" {
		t.Fatalf("unexpected sample socket path %q", cfg.Broker.SocketPath)
	}
}
