package skillset

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skillset/internal/config"
	"skillset/internal/logging"
	"skillset/internal/wire"
)

// DefaultDialTimeout bounds connection establishment when Options leaves
// DialTimeout unset.
const DefaultDialTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	// SocketPath is the broker's Unix domain socket. Required.
	SocketPath string
	// DialTimeout bounds connect. Zero selects DefaultDialTimeout.
	DialTimeout time.Duration
	// CallTimeout bounds one request/response round trip. Zero disables it;
	// a context deadline still applies.
	CallTimeout time.Duration
	// MaxFrameBytes caps a single response frame. Zero selects 16 MiB.
	MaxFrameBytes int
	// ReuseConnection keeps one connection open across calls and serializes
	// calls over it. Off by default: every call dials its own connection.
	ReuseConnection bool
	// Logger receives debug-level call transitions. Nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	o.SocketPath = strings.TrimSpace(o.SocketPath)
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.MaxFrameBytes == 0 {
		o.MaxFrameBytes = wire.DefaultMaxFrameBytes
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

func (o Options) validate() error {
	if o.SocketPath == "" {
		return errors.New("socket path is required")
	}
	if o.DialTimeout < 0 {
		return fmt.Errorf("dial timeout must be positive (got %s)", o.DialTimeout)
	}
	if o.CallTimeout < 0 {
		return fmt.Errorf("call timeout must be zero or positive (got %s)", o.CallTimeout)
	}
	if o.MaxFrameBytes < 0 {
		return fmt.Errorf("max frame bytes must be positive (got %d)", o.MaxFrameBytes)
	}
	return nil
}

// LoadOptions reads client options from the TOML file at path. The path is
// always explicit; nothing is read from the environment.
func LoadOptions(path string) (Options, error) {
	cfg, _, err := config.Load(path)
	if err != nil {
		return Options{}, fmt.Errorf("load options: %w", err)
	}
	return optionsFromConfig(cfg)
}

func optionsFromConfig(cfg *config.Config) (Options, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return Options{}, fmt.Errorf("configure logging: %w", err)
	}
	return Options{
		SocketPath:      cfg.Broker.SocketPath,
		DialTimeout:     cfg.DialTimeout(),
		CallTimeout:     cfg.CallTimeout(),
		MaxFrameBytes:   cfg.Broker.MaxFrameBytes,
		ReuseConnection: cfg.Broker.ReuseConnection,
		Logger:          logger,
	}, nil
}
