// Package openai implements the ChatFormatter for the OpenAI chat
// completions wire schema.
package openai

import (
	"strings"

	"go.uber.org/zap"

	"github.com/orvane/agentcore/providers"
	"github.com/orvane/agentcore/types"
)

// Formatter converts abstract messages to and from the OpenAI chat wire
// format. It is stateless and safe for concurrent use.
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

// New creates an OpenAI formatter. Defaults: image and audio input
// supported, no video, local files inlined as base64 data URIs.
func New(logger *zap.Logger, opts ...Option) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Formatter{
		caps: providers.Capabilities{
			Image:        true,
			Audio:        true,
			Video:        false,
			InlineBase64: true,
		},
		logger: logger.With(zap.String("component", "openai-formatter")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Formatter) Name() string { return "openai" }

func (f *Formatter) Capabilities() providers.Capabilities { return f.caps }

func (f *Formatter) Format(msgs []types.Message) ([]providers.ChatMessage, error) {
	return providers.FormatMessages(msgs, f.caps, f.buildPart, f.logger)
}

func (f *Formatter) ParseResponse(resp *providers.ChatResponse) (*providers.ParsedResponse, error) {
	return providers.ParseOpenAICompatible(resp, f.Name(), f.logger)
}

func (f *Formatter) ParseChunk(chunk *providers.ChatChunk, acc *providers.ToolCallAccumulator) (*providers.ParsedResponse, error) {
	return providers.ParseOpenAICompatibleChunk(chunk, acc, f.Name(), f.logger)
}

// buildPart renders one OpenAI content part.
func (f *Formatter) buildPart(kind, payload string) (providers.ContentPart, bool) {
	switch kind {
	case types.BlockText:
		return providers.ContentPart{"type": "text", "text": payload}, true
	case types.BlockImage:
		return providers.ContentPart{
			"type":      "image_url",
			"image_url": map[string]any{"url": payload},
		}, true
	case types.BlockAudio:
		data, format, ok := splitAudioDataURI(payload)
		if !ok {
			// input_audio only accepts inline base64 payloads.
			return nil, false
		}
		return providers.ContentPart{
			"type":        "input_audio",
			"input_audio": map[string]any{"data": data, "format": format},
		}, true
	default:
		return nil, false
	}
}

// splitAudioDataURI extracts the raw base64 payload and audio format from a
// data URI such as "data:audio/wav;base64,UklGRg==".
func splitAudioDataURI(uri string) (data, format string, ok bool) {
	if !strings.HasPrefix(uri, "data:audio/") {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, "data:audio/")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", false
	}
	return rest[sep+len(";base64,"):], rest[:sep], true
}
