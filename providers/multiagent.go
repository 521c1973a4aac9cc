package providers

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/orvane/agentcore/types"
)

// History markers wrapping a collapsed multi-party transcript.
const (
	historyOpen  = "<history>"
	historyClose = "</history>"
)

// MultiAgentFormatter adapts any ChatFormatter for conversations with more
// than two named participants. Most chat APIs only accept strict
// user/assistant alternation, so runs of plain user/assistant turns are
// collapsed into a single synthetic user message carrying the transcript
// inside <history> markers. Tool-call and tool-result messages keep their
// structural form and are never folded into the transcript.
type MultiAgentFormatter struct {
	inner  ChatFormatter
	logger *zap.Logger
}

// NewMultiAgentFormatter wraps inner with multi-party history collapsing.
func NewMultiAgentFormatter(inner ChatFormatter, logger *zap.Logger) *MultiAgentFormatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiAgentFormatter{inner: inner, logger: logger}
}

func (f *MultiAgentFormatter) Name() string {
	return f.inner.Name() + "-multiagent"
}

func (f *MultiAgentFormatter) Capabilities() Capabilities {
	return f.inner.Capabilities()
}

// Format collapses conversation runs and delegates wire rendering to the
// wrapped formatter.
func (f *MultiAgentFormatter) Format(msgs []types.Message) ([]ChatMessage, error) {
	collapsed := make([]types.Message, 0, len(msgs))
	var run []types.Message

	flush := func() {
		if len(run) == 0 {
			return
		}
		collapsed = append(collapsed, collapseHistory(run))
		run = nil
	}

	for _, msg := range msgs {
		conversational := (msg.Role == types.RoleUser || msg.Role == types.RoleAssistant) &&
			!msg.IsToolRelated()
		if conversational {
			run = append(run, msg)
			continue
		}
		flush()
		collapsed = append(collapsed, msg)
	}
	flush()

	return f.inner.Format(collapsed)
}

func (f *MultiAgentFormatter) ParseResponse(resp *ChatResponse) (*ParsedResponse, error) {
	return f.inner.ParseResponse(resp)
}

func (f *MultiAgentFormatter) ParseChunk(chunk *ChatChunk, acc *ToolCallAccumulator) (*ParsedResponse, error) {
	return f.inner.ParseChunk(chunk, acc)
}

// collapseHistory renders a run of conversational turns as one user message
// with a line per turn: "<Role> <Name>: <text>", name defaulting to
// "Unknown".
func collapseHistory(run []types.Message) types.Message {
	lines := make([]string, 0, len(run)+2)
	lines = append(lines, historyOpen)
	for _, msg := range run {
		name := msg.Name
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", titleRole(msg.Role), name, msg.Text()))
	}
	lines = append(lines, historyClose)
	return types.NewUserMessage(strings.Join(lines, "\n"))
}

func titleRole(role types.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
