package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full module configuration.
type Config struct {
	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Formatter configures message formatting.
	Formatter FormatterConfig `yaml:"formatter" env:"FORMATTER"`

	// Memory configures context compression.
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Persistence configures session storage.
	Persistence PersistenceConfig `yaml:"persistence" env:"PERSISTENCE"`

	// Metrics configures Prometheus instrumentation.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs, e.g. "stdout" or file paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with file:line.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// FormatterConfig selects and tunes the provider formatter.
type FormatterConfig struct {
	// Provider: openai or dashscope.
	Provider string `yaml:"provider" env:"PROVIDER"`
	// MultiAgent collapses agent conversations into history blocks.
	MultiAgent bool `yaml:"multi_agent" env:"MULTI_AGENT"`
	// InlineBase64 inlines local media files as data URIs.
	InlineBase64 bool `yaml:"inline_base64" env:"INLINE_BASE64"`
}

// MemoryConfig tunes AutoContextMemory thresholds.
type MemoryConfig struct {
	MsgThreshold               int     `yaml:"msg_threshold" env:"MSG_THRESHOLD"`
	MaxTokens                  int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	TokenRatio                 float64 `yaml:"token_ratio" env:"TOKEN_RATIO"`
	MinConsecutiveToolMessages int     `yaml:"min_consecutive_tool_messages" env:"MIN_CONSECUTIVE_TOOL_MESSAGES"`
	LargePayloadBytes          int     `yaml:"large_payload_bytes" env:"LARGE_PAYLOAD_BYTES"`
	PreviewChars               int     `yaml:"preview_chars" env:"PREVIEW_CHARS"`
	KeepLast                   int     `yaml:"keep_last" env:"KEEP_LAST"`
	PlanToolNames              []string `yaml:"plan_tool_names" env:"PLAN_TOOL_NAMES"`
	// Model selects the tokenizer used for estimates.
	Model string `yaml:"model" env:"MODEL"`
	// SummarizerRPS rate-limits summarization calls; 0 disables limiting.
	SummarizerRPS float64 `yaml:"summarizer_rps" env:"SUMMARIZER_RPS"`
	// SummarizerBurst is the limiter burst size.
	SummarizerBurst int `yaml:"summarizer_burst" env:"SUMMARIZER_BURST"`
}

// PersistenceConfig selects the session store backend.
type PersistenceConfig struct {
	// Backend: none, file, redis or database.
	Backend string `yaml:"backend" env:"BACKEND"`
	// BaseDir is the file backend's directory.
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// Database configures the database backend.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB"`
	PoolSize  int           `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// DatabaseConfig configures the SQL connection.
type DatabaseConfig struct {
	// Driver: sqlite.
	Driver string `yaml:"driver" env:"DRIVER"`
	// DSN is the driver-specific connection string.
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader loads configuration with the precedence defaults, file, env.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the AGENTCORE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTCORE"}
}

// WithConfigPath sets the YAML file to read. A missing file is not an
// error; defaults apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads from the given path and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	var errs []string

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch c.Formatter.Provider {
	case "openai", "dashscope":
	default:
		errs = append(errs, fmt.Sprintf("unknown formatter provider %q", c.Formatter.Provider))
	}
	if c.Memory.TokenRatio <= 0 || c.Memory.TokenRatio > 1 {
		errs = append(errs, "memory token_ratio must be in (0,1]")
	}
	if c.Memory.MaxTokens <= 0 {
		errs = append(errs, "memory max_tokens must be positive")
	}
	switch c.Persistence.Backend {
	case "none", "file", "redis", "database":
	default:
		errs = append(errs, fmt.Sprintf("unknown persistence backend %q", c.Persistence.Backend))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be in [0,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
