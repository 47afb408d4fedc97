package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skillset/internal/brokertest"
	"skillset/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config whose socket lives in a fresh short temp
// directory. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfgVal := config.Default()
	cfgVal.Broker.SocketPath = SocketPath(t)

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithCallTimeout bounds each round trip.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broker.CallTimeoutMS = int(d / time.Millisecond)
	}
}

// WithReuseConnection keeps one connection open across calls.
func WithReuseConnection() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broker.ReuseConnection = true
	}
}

// SocketPath returns a socket path in a new temp directory removed at
// cleanup. t.TempDir paths can exceed the sun_path limit, so the directory is
// created directly under the system temp root.
func SocketPath(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "sk")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return filepath.Join(dir, "broker.sock")
}

// StartBroker serves handler on the config's socket until the test ends.
func StartBroker(t testing.TB, cfg *config.Config, handler brokertest.HandlerFunc) *brokertest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := brokertest.NewServer(ctx, cfg.Broker.SocketPath, handler, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping broker test: %v", err)
		}
		t.Fatalf("brokertest.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return srv
}
