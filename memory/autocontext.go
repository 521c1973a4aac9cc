package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/orvane/agentcore/internal/metrics"
	"github.com/orvane/agentcore/tokenizer"
	"github.com/orvane/agentcore/types"
)

// AutoContextConfig tunes the compression behavior of AutoContextMemory.
type AutoContextConfig struct {
	// MsgThreshold triggers compression once the working log holds more
	// than this many messages.
	MsgThreshold int `yaml:"msg_threshold" json:"msg_threshold"`
	// MaxTokens is the model context budget compression works against.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	// TokenRatio triggers compression once the estimated working tokens
	// exceed MaxTokens*TokenRatio.
	TokenRatio float64 `yaml:"token_ratio" json:"token_ratio"`
	// MinConsecutiveToolMessages is the shortest run of tool traffic the
	// tool-run strategy will collapse.
	MinConsecutiveToolMessages int `yaml:"min_consecutive_tool_messages" json:"min_consecutive_tool_messages"`
	// LargePayloadBytes is the serialized size above which a message is
	// eligible for offloading.
	LargePayloadBytes int `yaml:"large_payload_bytes" json:"large_payload_bytes"`
	// PreviewChars is how much text the preview left in the working log
	// retains.
	PreviewChars int `yaml:"preview_chars" json:"preview_chars"`
	// KeepLast exempts the newest N messages from the first offload pass.
	KeepLast int `yaml:"keep_last" json:"keep_last"`
	// PlanToolNames marks tools whose runs are replaced by a fixed stub
	// instead of being summarized; plan state lives outside the
	// conversation, so summarizing those runs wastes a model call.
	PlanToolNames []string `yaml:"plan_tool_names" json:"plan_tool_names"`
	// Model selects the tokenizer used for estimates.
	Model string `yaml:"model" json:"model"`
}

// DefaultAutoContextConfig returns the standard thresholds.
func DefaultAutoContextConfig() AutoContextConfig {
	return AutoContextConfig{
		MsgThreshold:               30,
		MaxTokens:                  64000,
		TokenRatio:                 0.75,
		MinConsecutiveToolMessages: 3,
		LargePayloadBytes:          4096,
		PreviewChars:               200,
		KeepLast:                   10,
		PlanToolNames:              []string{"plan", "update_plan"},
		Model:                      "gpt-4o",
	}
}

func (c *AutoContextConfig) applyDefaults() {
	def := DefaultAutoContextConfig()
	if c.MsgThreshold <= 0 {
		c.MsgThreshold = def.MsgThreshold
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.TokenRatio <= 0 || c.TokenRatio > 1 {
		c.TokenRatio = def.TokenRatio
	}
	if c.MinConsecutiveToolMessages <= 0 {
		c.MinConsecutiveToolMessages = def.MinConsecutiveToolMessages
	}
	if c.LargePayloadBytes <= 0 {
		c.LargePayloadBytes = def.LargePayloadBytes
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = def.PreviewChars
	}
	if c.KeepLast <= 0 {
		c.KeepLast = def.KeepLast
	}
	if c.PlanToolNames == nil {
		c.PlanToolNames = def.PlanToolNames
	}
	if c.Model == "" {
		c.Model = def.Model
	}
}

// MetadataOffloadID is the message metadata key carrying the offload
// reference ID of a preview message.
const MetadataOffloadID = "offload_id"

// AutoContextMemory is a Memory that transparently compresses its working
// log when it grows past the configured thresholds. The original log is
// never compressed and records every message as it was added.
type AutoContextMemory struct {
	cfg        AutoContextConfig
	working    []types.Message
	original   []types.Message
	offload    *OffloadStore
	summarizer Summarizer
	tok        tokenizer.Tokenizer
	logger     *zap.Logger
	collector  *metrics.Collector
	tracer     trace.Tracer
}

// Option configures an AutoContextMemory.
type Option func(*AutoContextMemory)

// WithSummarizer enables the summarization strategies. Without one, tool
// runs and rounds are left alone and only offloading and truncation apply.
func WithSummarizer(s Summarizer) Option {
	return func(m *AutoContextMemory) { m.summarizer = s }
}

// WithTokenizer overrides the tokenizer chosen from cfg.Model.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(m *AutoContextMemory) { m.tok = t }
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(m *AutoContextMemory) { m.logger = logger }
}

// WithCollector attaches Prometheus instrumentation.
func WithCollector(c *metrics.Collector) Option {
	return func(m *AutoContextMemory) { m.collector = c }
}

// NewAutoContextMemory creates a self-compressing memory for one session.
func NewAutoContextMemory(cfg AutoContextConfig, opts ...Option) *AutoContextMemory {
	cfg.applyDefaults()
	m := &AutoContextMemory{
		cfg:     cfg,
		offload: NewOffloadStore(),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("github.com/orvane/agentcore/memory"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tok == nil {
		m.tok = tokenizer.ForModelOrEstimator(cfg.Model)
	}
	m.logger = m.logger.With(zap.String("component", "autocontext"))
	return m
}

// Add appends the message to both the working and the original log.
func (m *AutoContextMemory) Add(_ context.Context, msg types.Message) error {
	m.working = append(m.working, msg)
	m.original = append(m.original, msg)
	m.collector.SetWorkingSize(len(m.working))
	return nil
}

// Get returns the working log, compressing it first when it is over
// budget. The returned slice is a copy.
func (m *AutoContextMemory) Get(ctx context.Context) ([]types.Message, error) {
	if m.overBudget() {
		m.compress(ctx)
	}
	out := make([]types.Message, len(m.working))
	copy(out, m.working)
	return out, nil
}

// Compress runs the strategy cascade immediately instead of waiting for
// the next over-budget read. It returns ErrCompressionSkipped when the
// working log is already within budget.
func (m *AutoContextMemory) Compress(ctx context.Context) error {
	if !m.overBudget() {
		return types.NewError(types.ErrCompressionSkipped, "working log within budget")
	}
	m.compress(ctx)
	return nil
}

// Delete removes the message at index from the working log only; the
// original log keeps its record.
func (m *AutoContextMemory) Delete(_ context.Context, index int) error {
	if index < 0 || index >= len(m.working) {
		return fmt.Errorf("memory: index %d out of range [0,%d)", index, len(m.working))
	}
	m.working = append(m.working[:index], m.working[index+1:]...)
	m.collector.SetWorkingSize(len(m.working))
	return nil
}

// Clear empties the working log and the offload store. The original log
// is preserved so the session remains auditable.
func (m *AutoContextMemory) Clear(_ context.Context) error {
	m.working = nil
	m.offload.Clear()
	m.collector.SetWorkingSize(0)
	m.collector.SetOffloadEntries(0)
	return nil
}

// Reset wipes all state including the original log.
func (m *AutoContextMemory) Reset(_ context.Context) error {
	m.working = nil
	m.original = nil
	m.offload.Clear()
	m.collector.SetWorkingSize(0)
	m.collector.SetOffloadEntries(0)
	return nil
}

// Size returns the working log length.
func (m *AutoContextMemory) Size() int {
	return len(m.working)
}

// Original returns a copy of the uncompressed log.
func (m *AutoContextMemory) Original() []types.Message {
	out := make([]types.Message, len(m.original))
	copy(out, m.original)
	return out
}

// RetrieveOffloaded returns the full content behind an offload reference.
// The result is ErrOffloadNotFound when the ID is unknown, which includes
// IDs discarded by Clear or Reset.
func (m *AutoContextMemory) RetrieveOffloaded(id string) ([]types.Message, error) {
	msgs, ok := m.offload.Get(id)
	m.collector.RecordOffloadRetrieval(ok)
	if !ok {
		return nil, types.Errorf(types.ErrOffloadNotFound, "no offloaded content for reference %s", id)
	}
	return msgs, nil
}

// Snapshot returns the full memory state for persistence.
func (m *AutoContextMemory) Snapshot() (working, original []types.Message, offload map[string][]types.Message) {
	working = make([]types.Message, len(m.working))
	copy(working, m.working)
	original = make([]types.Message, len(m.original))
	copy(original, m.original)
	return working, original, m.offload.Snapshot()
}

// Restore replaces the memory state with a previously captured snapshot.
func (m *AutoContextMemory) Restore(working, original []types.Message, offload map[string][]types.Message) {
	m.working = make([]types.Message, len(working))
	copy(m.working, working)
	m.original = make([]types.Message, len(original))
	copy(m.original, original)
	m.offload.Restore(offload)
	m.collector.SetWorkingSize(len(m.working))
	m.collector.SetOffloadEntries(m.offload.Len())
}

func (m *AutoContextMemory) overBudget() bool {
	if len(m.working) > m.cfg.MsgThreshold {
		return true
	}
	return float64(m.estimateTokens()) > float64(m.cfg.MaxTokens)*m.cfg.TokenRatio
}

func (m *AutoContextMemory) estimateTokens() int {
	flat := make([]tokenizer.Message, len(m.working))
	for i, msg := range m.working {
		flat[i] = tokenizer.Message{Role: string(msg.Role), Content: flattenMessage(msg)}
	}
	n, err := m.tok.CountMessages(flat)
	if err != nil {
		m.logger.Debug("token estimate failed", zap.Error(err))
		return 0
	}
	return n
}

// compress runs the strategy cascade. Thresholds are rechecked after each
// strategy so later, more aggressive strategies only run when the earlier
// ones did not free enough room.
func (m *AutoContextMemory) compress(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "memory.compress")
	defer span.End()

	start := time.Now()
	before := len(m.working)
	tokensBefore := m.estimateTokens()
	m.collector.RecordCompressionTriggered()
	m.collector.SetWorkingTokens("before", tokensBefore)
	span.SetAttributes(
		attribute.Int("messages.before", before),
		attribute.Int("tokens.before", tokensBefore),
	)

	strategies := []struct {
		name string
		run  func(context.Context) bool
	}{
		{"tool_runs", m.compressToolRuns},
		{"offload_keep_last", func(ctx context.Context) bool { return m.offloadLarge(ctx, true) }},
		{"offload_all", func(ctx context.Context) bool { return m.offloadLarge(ctx, false) }},
		{"round_summaries", m.summarizeRounds},
		{"current_round", m.compressCurrentRound},
	}

	var applied []string
	for _, s := range strategies {
		progressed := s.run(ctx)
		outcome := "noop"
		if progressed {
			outcome = "progressed"
			applied = append(applied, s.name)
		}
		m.collector.RecordStrategy(s.name, outcome)
		if !m.overBudget() {
			break
		}
	}

	tokensAfter := m.estimateTokens()
	m.collector.SetWorkingTokens("after", tokensAfter)
	m.collector.SetWorkingSize(len(m.working))
	m.collector.SetOffloadEntries(m.offload.Len())
	m.collector.RecordCompressionPass(time.Since(start))
	span.SetAttributes(
		attribute.Int("messages.after", len(m.working)),
		attribute.Int("tokens.after", tokensAfter),
		attribute.StringSlice("strategies.applied", applied),
	)

	m.logger.Info("compressed working log",
		zap.Int("messages_before", before),
		zap.Int("messages_after", len(m.working)),
		zap.Int("tokens_before", tokensBefore),
		zap.Int("tokens_after", tokensAfter),
		zap.Strings("strategies", applied),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// flattenMessage renders a message as plain text for token estimation.
func flattenMessage(msg types.Message) string {
	var parts []string
	if msg.Name != "" {
		parts = append(parts, msg.Name)
	}
	for _, b := range msg.Blocks {
		switch v := b.(type) {
		case types.TextBlock:
			parts = append(parts, v.Text)
		case types.ThinkingBlock:
			parts = append(parts, v.Thinking)
		case types.ToolUseBlock:
			parts = append(parts, v.Name)
			if v.RawInput != "" {
				parts = append(parts, v.RawInput)
			} else if len(v.Input) > 0 {
				if enc, err := json.Marshal(v.Input); err == nil {
					parts = append(parts, string(enc))
				}
			}
		case types.ToolResultBlock:
			parts = append(parts, v.Name)
			parts = append(parts, flattenMessage(types.Message{Blocks: v.Output}))
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			if src, ok := types.MediaSource(b); ok {
				parts = append(parts, sourceText(src))
			}
		}
	}
	joined := ""
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && joined != "" {
			joined += "\n"
		}
		joined += p
	}
	return joined
}

func sourceText(src types.Source) string {
	switch v := src.(type) {
	case types.URLSource:
		return v.URL
	case types.Base64Source:
		return v.MediaType
	default:
		return ""
	}
}

// serializedSize measures a message by its JSON encoding.
func serializedSize(msg types.Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(data)
}
