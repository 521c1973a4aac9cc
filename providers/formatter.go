package providers

import (
	"github.com/orvane/agentcore/types"
)

// Capabilities describes which media kinds a provider wire schema can carry
// and how local files should be encoded for it.
type Capabilities struct {
	Image bool `json:"image" yaml:"image"`
	Audio bool `json:"audio" yaml:"audio"`
	Video bool `json:"video" yaml:"video"`

	// InlineBase64 prefers base64 data URIs over file:// URIs for local
	// filesystem sources.
	InlineBase64 bool `json:"inline_base64" yaml:"inline_base64"`
}

// Supports reports whether the given media block kind can be carried.
func (c Capabilities) Supports(kind string) bool {
	switch kind {
	case types.BlockImage:
		return c.Image
	case types.BlockAudio:
		return c.Audio
	case types.BlockVideo:
		return c.Video
	default:
		return false
	}
}

// ParsedResponse is the provider-agnostic result of parsing a response or
// a streamed chunk: the reconstructed message plus usage counters (zero
// values when the provider reported none).
type ParsedResponse struct {
	Message types.Message
	Usage   types.TokenUsage
}

// ChatFormatter is a stateless, bidirectional codec between the abstract
// message model and one provider's wire schema. Format is a pure function
// of its input and the formatter's static capability configuration:
// formatting the same list twice yields identical output.
type ChatFormatter interface {
	// Name returns the provider identifier.
	Name() string

	// Capabilities returns the provider's media capabilities.
	Capabilities() Capabilities

	// Format converts abstract messages into wire messages. The input is
	// never mutated. An empty input formats to an empty output.
	Format(msgs []types.Message) ([]ChatMessage, error)

	// ParseResponse converts a non-streamed response into a message.
	// A structurally absent response is a hard ErrParse; an empty choice
	// list degrades to an empty message with a diagnostic log.
	ParseResponse(resp *ChatResponse) (*ParsedResponse, error)

	// ParseChunk converts one streamed chunk into a message delta. Tool
	// calls arriving without a name are tagged as fragments. When acc is
	// non-nil the chunk's tool-call pieces are also accumulated there for
	// end-of-stream assembly; the formatter itself holds no cross-chunk
	// state.
	ParseChunk(chunk *ChatChunk, acc *ToolCallAccumulator) (*ParsedResponse, error)
}
