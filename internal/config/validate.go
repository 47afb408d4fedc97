package config

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBroker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBroker() error {
	if c.Broker.SocketPath == "" {
		return errors.New("broker.socket_path is required")
	}
	// sun_path includes the terminating NUL.
	if limit := len(unix.RawSockaddrUnix{}.Path) - 1; len(c.Broker.SocketPath) > limit {
		return fmt.Errorf("broker.socket_path is %d bytes; unix sockets allow at most %d", len(c.Broker.SocketPath), limit)
	}
	if c.Broker.DialTimeoutMS < 0 {
		return errors.New("broker.dial_timeout_ms must be positive")
	}
	if c.Broker.CallTimeoutMS < 0 {
		return errors.New("broker.call_timeout_ms must be zero or positive")
	}
	if c.Broker.MaxFrameBytes < 0 || c.Broker.MaxFrameBytes > maxMaxFrameBytes {
		return fmt.Errorf("broker.max_frame_bytes must be between 1 and %d", maxMaxFrameBytes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be console, json, or auto (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
