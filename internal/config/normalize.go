package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeBroker(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeBroker() error {
	var err error
	if c.Broker.SocketPath, err = expandPath(c.Broker.SocketPath); err != nil {
		return fmt.Errorf("broker.socket_path: %w", err)
	}
	if c.Broker.DialTimeoutMS == 0 {
		c.Broker.DialTimeoutMS = defaultDialTimeoutMS
	}
	if c.Broker.MaxFrameBytes == 0 {
		c.Broker.MaxFrameBytes = defaultMaxFrameBytes
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	outputs := make([]string, 0, len(c.Logging.Output))
	for _, out := range c.Logging.Output {
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			outputs = append(outputs, trimmed)
		}
	}
	if len(outputs) == 0 {
		outputs = []string{defaultLogOutput}
	}
	c.Logging.Output = outputs
}
