package config

import "time"

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Formatter: FormatterConfig{
			Provider:     "openai",
			InlineBase64: true,
		},
		Memory: MemoryConfig{
			MsgThreshold:               30,
			MaxTokens:                  64000,
			TokenRatio:                 0.75,
			MinConsecutiveToolMessages: 3,
			LargePayloadBytes:          4096,
			PreviewChars:               200,
			KeepLast:                   10,
			PlanToolNames:              []string{"plan", "update_plan"},
			Model:                      "gpt-4o",
			SummarizerRPS:              2,
			SummarizerBurst:            4,
		},
		Persistence: PersistenceConfig{
			Backend: "none",
			BaseDir: "./data",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				PoolSize:  10,
				KeyPrefix: "agentcore:",
			},
			Database: DatabaseConfig{
				Driver:          "sqlite",
				DSN:             "agentcore.db",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
			},
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "agentcore",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "agentcore",
			SampleRate:   1.0,
		},
	}
}
