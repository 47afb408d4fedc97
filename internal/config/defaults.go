package config

const (
	defaultDialTimeoutMS = 5000
	defaultMaxFrameBytes = 16 << 20
	maxMaxFrameBytes     = 1 << 30
	defaultLogLevel      = "info"
	defaultLogFormat     = "auto"
	defaultLogOutput     = "stderr"
)

// Default returns a Config populated with client defaults. SocketPath has no
// default; the broker hands it to the skill at launch.
func Default() Config {
	return Config{
		Broker: Broker{
			DialTimeoutMS: defaultDialTimeoutMS,
			MaxFrameBytes: defaultMaxFrameBytes,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Output: []string{defaultLogOutput},
		},
	}
}
