// Package agentcore assembles the module's pieces from configuration: a
// provider formatter, a self-compressing session memory, optional session
// persistence and optional observability.
//
// Usage:
//
//	import "github.com/orvane/agentcore"
//
//	cfg := config.DefaultConfig()
//	rt, err := agentcore.FromConfig(cfg, agentcore.WithSummarizer(mySummarizer))
//	defer rt.Close(ctx)
//
//	wire, err := rt.Formatter.Format(msgs)
//
// Callers who need only one piece can use the packages directly; this
// package is convenience wiring, not a required entry point.
package agentcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orvane/agentcore/config"
	"github.com/orvane/agentcore/internal/metrics"
	"github.com/orvane/agentcore/internal/telemetry"
	"github.com/orvane/agentcore/memory"
	"github.com/orvane/agentcore/persistence"
	"github.com/orvane/agentcore/providers"
	"github.com/orvane/agentcore/providers/dashscope"
	"github.com/orvane/agentcore/providers/openai"
	"github.com/orvane/agentcore/types"
)

// NewFormatter creates the named provider formatter: "openai" or
// "dashscope".
func NewFormatter(provider string, logger *zap.Logger) (providers.ChatFormatter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch provider {
	case "openai":
		return openai.New(logger), nil
	case "dashscope":
		return dashscope.New(logger), nil
	default:
		return nil, fmt.Errorf("agentcore: unknown formatter provider %q", provider)
	}
}

// Runtime bundles the components built from one Config.
type Runtime struct {
	// Formatter renders messages for the configured provider.
	Formatter providers.ChatFormatter
	// Memory is the session's self-compressing message log.
	Memory *memory.AutoContextMemory
	// Sessions is nil when persistence is configured off.
	Sessions persistence.SessionStore

	logger    *zap.Logger
	ownLogger bool
	providers *telemetry.Providers
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *zap.Logger { return r.logger }

// Close releases the session store and flushes telemetry.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Sessions != nil {
		if err := r.Sessions.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.providers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.ownLogger {
		// Stdout sync failures are expected on some platforms.
		_ = r.logger.Sync()
	}
	return errors.Join(errs...)
}

// RuntimeOption configures FromConfig.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	logger     *zap.Logger
	summarizer memory.Summarizer
	registerer prometheus.Registerer
}

// WithRuntimeLogger supplies a logger instead of building one from the
// config's log section.
func WithRuntimeLogger(logger *zap.Logger) RuntimeOption {
	return func(o *runtimeOptions) { o.logger = logger }
}

// WithSummarizer enables the summarization compression strategies.
func WithSummarizer(s memory.Summarizer) RuntimeOption {
	return func(o *runtimeOptions) { o.summarizer = s }
}

// WithRegisterer overrides the Prometheus registry used when metrics are
// enabled.
func WithRegisterer(reg prometheus.Registerer) RuntimeOption {
	return func(o *runtimeOptions) { o.registerer = reg }
}

// FromConfig builds a Runtime from a validated configuration.
func FromConfig(cfg *config.Config, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	ownLogger := false
	if logger == nil {
		built, err := cfg.Log.BuildLogger()
		if err != nil {
			return nil, err
		}
		logger = built
		ownLogger = true
	}

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}

	formatter, err := newConfiguredFormatter(cfg.Formatter, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Formatter.MultiAgent {
		formatter = providers.NewMultiAgentFormatter(formatter, logger)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, o.registerer, logger)
		formatter = &instrumentedFormatter{ChatFormatter: formatter, collector: collector}
	}

	summarizer := o.summarizer
	if summarizer != nil && cfg.Memory.SummarizerRPS > 0 {
		summarizer = memory.NewRateLimitedSummarizer(summarizer, cfg.Memory.SummarizerRPS, cfg.Memory.SummarizerBurst)
	}

	memOpts := []memory.Option{
		memory.WithLogger(logger),
		memory.WithCollector(collector),
	}
	if summarizer != nil {
		memOpts = append(memOpts, memory.WithSummarizer(summarizer))
	}
	mem := memory.NewAutoContextMemory(memoryConfig(cfg.Memory), memOpts...)

	store, err := newSessionStore(cfg.Persistence)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Formatter: formatter,
		Memory:    mem,
		Sessions:  store,
		logger:    logger,
		ownLogger: ownLogger,
		providers: tel,
	}, nil
}

// instrumentedFormatter counts and times Format calls. Parsing is left
// uninstrumented; it is a cheap local transform.
type instrumentedFormatter struct {
	providers.ChatFormatter
	collector *metrics.Collector
}

func (f *instrumentedFormatter) Format(msgs []types.Message) ([]providers.ChatMessage, error) {
	start := time.Now()
	wire, err := f.ChatFormatter.Format(msgs)
	f.collector.RecordFormat(f.Name(), time.Since(start), err)
	return wire, err
}

func newConfiguredFormatter(c config.FormatterConfig, logger *zap.Logger) (providers.ChatFormatter, error) {
	switch c.Provider {
	case "openai":
		caps := openai.New(nil).Capabilities()
		caps.InlineBase64 = c.InlineBase64
		return openai.New(logger, openai.WithCapabilities(caps)), nil
	case "dashscope":
		// DashScope expects media by URL; inlining does not apply.
		return dashscope.New(logger), nil
	default:
		return nil, fmt.Errorf("agentcore: unknown formatter provider %q", c.Provider)
	}
}

func memoryConfig(c config.MemoryConfig) memory.AutoContextConfig {
	return memory.AutoContextConfig{
		MsgThreshold:               c.MsgThreshold,
		MaxTokens:                  c.MaxTokens,
		TokenRatio:                 c.TokenRatio,
		MinConsecutiveToolMessages: c.MinConsecutiveToolMessages,
		LargePayloadBytes:          c.LargePayloadBytes,
		PreviewChars:               c.PreviewChars,
		KeepLast:                   c.KeepLast,
		PlanToolNames:              c.PlanToolNames,
		Model:                      c.Model,
	}
}

func newSessionStore(c config.PersistenceConfig) (persistence.SessionStore, error) {
	switch c.Backend {
	case "", "none":
		return nil, nil
	case "file":
		return persistence.NewFileStore(c.BaseDir)
	case "redis":
		return persistence.NewRedisStore(persistence.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			PoolSize:  c.Redis.PoolSize,
			KeyPrefix: c.Redis.KeyPrefix,
			TTL:       c.Redis.TTL,
		})
	case "database":
		return newDatabaseStore(c.Database)
	default:
		return nil, fmt.Errorf("agentcore: unknown persistence backend %q", c.Backend)
	}
}

func newDatabaseStore(c config.DatabaseConfig) (persistence.SessionStore, error) {
	if c.Driver != "sqlite" {
		return nil, fmt.Errorf("agentcore: unsupported database driver %q", c.Driver)
	}
	db, err := gorm.Open(sqlite.Open(c.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return persistence.NewGormStore(db)
}
