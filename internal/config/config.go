package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Broker contains the connection settings for the runtime broker.
type Broker struct {
	SocketPath      string `toml:"socket_path"`
	DialTimeoutMS   int    `toml:"dial_timeout_ms"`
	CallTimeoutMS   int    `toml:"call_timeout_ms"`
	MaxFrameBytes   int    `toml:"max_frame_bytes"`
	ReuseConnection bool   `toml:"reuse_connection"`
}

// Logging contains configuration for client log output.
type Logging struct {
	Enabled bool     `toml:"enabled"`
	Level   string   `toml:"level"`
	Format  string   `toml:"format"`
	Output  []string `toml:"output"`
}

// Config encapsulates all configuration values for the client.
type Config struct {
	Broker  Broker  `toml:"broker"`
	Logging Logging `toml:"logging"`
}

// Load parses and validates the configuration file at path. Unlike most
// tools there is no fallback search: a missing file is an error.
func Load(path string) (*Config, string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", errors.New("config path is required")
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, "", fmt.Errorf("parse config: unknown keys:\n%s", strict.String())
		}
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// DialTimeout returns the connect timeout.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Broker.DialTimeoutMS) * time.Millisecond
}

// CallTimeout returns the per-call round trip bound; zero means unbounded.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Broker.CallTimeoutMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
