package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/orvane/agentcore/types"
)

// Summarizer condenses a span of conversation into a single message.
// Implementations typically call a chat model with one of the prompt
// templates below; the returned message should carry the summary as text.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []types.Message) (types.Message, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, msgs []types.Message) (types.Message, error)

func (f SummarizerFunc) Summarize(ctx context.Context, msgs []types.Message) (types.Message, error) {
	return f(ctx, msgs)
}

// ToolRunSummaryPrompt instructs a model to condense a run of tool calls
// and results into a short factual digest.
const ToolRunSummaryPrompt = `Summarize the following sequence of tool calls and their results.
Keep it short and factual. Preserve:
- which tools were called and with what key arguments
- the essential outcomes, values, file paths and identifiers produced
- any errors and whether they were recovered from
Omit raw payloads and repeated boilerplate. Output plain text only.`

// RoundSummaryPrompt instructs a model to condense one full
// user/assistant exchange.
const RoundSummaryPrompt = `Summarize the following exchange between a user and an assistant.
Preserve the user's request, the decisions made, the key facts established
and any unresolved follow-ups. Keep offload reference IDs verbatim if they
appear. Output plain text only.`

// Transcript renders messages as a plain-text transcript suitable for
// inclusion in a summary prompt.
func Transcript(msgs []types.Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString("[")
		b.WriteString(string(msg.Role))
		if msg.Name != "" {
			b.WriteString(" ")
			b.WriteString(msg.Name)
		}
		b.WriteString("] ")
		if text := msg.Text(); text != "" {
			b.WriteString(text)
		}
		for _, use := range msg.ToolUses() {
			args := use.RawInput
			if args == "" && len(use.Input) > 0 {
				if enc, err := json.Marshal(use.Input); err == nil {
					args = string(enc)
				}
			}
			fmt.Fprintf(&b, "-> call %s(%s)", use.Name, args)
		}
		for _, res := range msg.ToolResults() {
			text := types.Message{Role: types.RoleTool, Blocks: res.Output}.Text()
			fmt.Fprintf(&b, "<- result %s: %s", res.Name, text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RateLimitedSummarizer wraps a Summarizer with a token-bucket limiter so
// that bursts of concurrent summarization (e.g. round compression) do not
// overwhelm the backing model endpoint.
type RateLimitedSummarizer struct {
	inner   Summarizer
	limiter *rate.Limiter
}

// NewRateLimitedSummarizer allows up to rps calls per second with the
// given burst size.
func NewRateLimitedSummarizer(inner Summarizer, rps float64, burst int) *RateLimitedSummarizer {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedSummarizer{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *RateLimitedSummarizer) Summarize(ctx context.Context, msgs []types.Message) (types.Message, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return types.Message{}, types.NewError(types.ErrSummarizer, "summarizer rate limit wait aborted").WithCause(err)
	}
	return s.inner.Summarize(ctx, msgs)
}
