// Package dashscope implements the ChatFormatter for Alibaba DashScope's
// OpenAI-compatible mode, including its native multimodal content parts.
package dashscope

import (
	"go.uber.org/zap"

	"github.com/orvane/agentcore/providers"
	"github.com/orvane/agentcore/types"
)

// Formatter converts abstract messages to and from the DashScope wire
// format. DashScope's multimodal schema addresses media by URI, so local
// files stay file:// references rather than inline base64.
type Formatter struct {
	caps   providers.Capabilities
	logger *zap.Logger
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithCapabilities overrides the default capability set.
func WithCapabilities(caps providers.Capabilities) Option {
	return func(f *Formatter) { f.caps = caps }
}

// New creates a DashScope formatter. Defaults: image, audio, and video all
// supported, media passed by URI.
func New(logger *zap.Logger, opts ...Option) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Formatter{
		caps: providers.Capabilities{
			Image:        true,
			Audio:        true,
			Video:        true,
			InlineBase64: false,
		},
		logger: logger.With(zap.String("component", "dashscope-formatter")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Formatter) Name() string { return "dashscope" }

func (f *Formatter) Capabilities() providers.Capabilities { return f.caps }

func (f *Formatter) Format(msgs []types.Message) ([]providers.ChatMessage, error) {
	return providers.FormatMessages(msgs, f.caps, buildPart, f.logger)
}

func (f *Formatter) ParseResponse(resp *providers.ChatResponse) (*providers.ParsedResponse, error) {
	return providers.ParseOpenAICompatible(resp, f.Name(), f.logger)
}

func (f *Formatter) ParseChunk(chunk *providers.ChatChunk, acc *providers.ToolCallAccumulator) (*providers.ParsedResponse, error) {
	return providers.ParseOpenAICompatibleChunk(chunk, acc, f.Name(), f.logger)
}

// buildPart renders one DashScope multimodal content part. DashScope uses
// single-key parts: {"text": ...}, {"image": ...}, {"audio": ...},
// {"video": ...}.
func buildPart(kind, payload string) (providers.ContentPart, bool) {
	switch kind {
	case types.BlockText:
		return providers.ContentPart{"text": payload}, true
	case types.BlockImage:
		return providers.ContentPart{"image": payload}, true
	case types.BlockAudio:
		return providers.ContentPart{"audio": payload}, true
	case types.BlockVideo:
		return providers.ContentPart{"video": payload}, true
	default:
		return nil, false
	}
}
