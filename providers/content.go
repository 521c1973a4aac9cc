package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/orvane/agentcore/types"
)

// PartBuilder renders one content part in a provider's wire schema. kind is
// a block kind (text/image/audio/video); payload is the text itself or the
// encoded media location. Returning false means the provider cannot
// represent the part; the caller then degrades to a text placeholder.
type PartBuilder func(kind, payload string) (ContentPart, bool)

// FormatMessages applies the shared block-to-wire rules and delegates
// provider-specific part rendering to parts. It never mutates msgs.
func FormatMessages(msgs []types.Message, caps Capabilities, parts PartBuilder, logger *zap.Logger) ([]ChatMessage, error) {
	out := make([]ChatMessage, 0, len(msgs))
	for i := range msgs {
		wire, err := formatMessage(&msgs[i], caps, parts, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, wire...)
	}
	return out, nil
}

func formatMessage(msg *types.Message, caps Capabilities, parts PartBuilder, logger *zap.Logger) ([]ChatMessage, error) {
	if msg.Role == types.RoleTool {
		return formatToolMessage(msg), nil
	}

	var (
		textRun    []string
		structured []ContentPart
		hasMedia   bool
		toolCalls  []ToolCall
	)

	flushText := func() {
		if len(textRun) == 0 {
			return
		}
		joined := strings.Join(textRun, "\n")
		textRun = nil
		if part, ok := parts(types.BlockText, joined); ok {
			structured = append(structured, part)
		}
	}

	for _, block := range msg.Blocks {
		switch b := block.(type) {
		case types.TextBlock:
			textRun = append(textRun, b.Text)

		case types.ThinkingBlock:
			// Never sent to the wire.

		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			kind := block.Kind()
			src, _ := types.MediaSource(block)
			if !caps.Supports(kind) {
				logger.Warn("media kind not supported by provider, degrading to placeholder",
					zap.String("kind", kind))
				textRun = append(textRun, fmt.Sprintf("[unsupported %s content omitted]", kind))
				continue
			}
			payload, err := EncodeSource(src, caps)
			if err != nil {
				return nil, err
			}
			part, ok := parts(kind, payload)
			if !ok {
				logger.Warn("provider part builder rejected media kind, degrading to placeholder",
					zap.String("kind", kind))
				textRun = append(textRun, fmt.Sprintf("[unsupported %s content omitted]", kind))
				continue
			}
			flushText()
			structured = append(structured, part)
			hasMedia = true

		case types.ToolUseBlock:
			if b.Fragment {
				logger.Warn("dropping unmerged tool-call fragment from formatted output",
					zap.String("tool_call_id", b.ID))
				continue
			}
			if msg.Role != types.RoleAssistant {
				logger.Warn("tool-use block on non-assistant message, skipping",
					zap.String("role", string(msg.Role)))
				continue
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      b.Name,
					Arguments: marshalToolInput(b),
				},
			})

		case types.ToolResultBlock:
			logger.Warn("tool-result block outside a tool-role message, skipping",
				zap.String("tool_call_id", b.ToolID))
		}
	}

	wire := ChatMessage{
		Role:      string(msg.Role),
		Name:      msg.Name,
		ToolCalls: toolCalls,
	}

	if hasMedia {
		flushText()
		wire.Content = structured
	} else {
		joined := strings.Join(textRun, "\n")
		if joined == "" && len(toolCalls) > 0 {
			// Tool-call-only assistant messages still need a content
			// field; null satisfies the schema.
			wire.Content = nil
		} else {
			wire.Content = joined
		}
	}

	return []ChatMessage{wire}, nil
}

// formatToolMessage emits one wire message per tool-result block. A
// tool-role message without any result degrades to its plain text.
func formatToolMessage(msg *types.Message) []ChatMessage {
	results := msg.ToolResults()
	if len(results) == 0 {
		return []ChatMessage{{
			Role:    string(types.RoleTool),
			Name:    msg.Name,
			Content: msg.Text(),
		}}
	}

	out := make([]ChatMessage, 0, len(results))
	for _, tr := range results {
		out = append(out, ChatMessage{
			Role:       string(types.RoleTool),
			Name:       tr.Name,
			ToolCallID: tr.ToolID,
			Content:    RenderToolResult(tr, msg),
		})
	}
	return out
}

// RenderToolResult flattens a tool result to wire text.
//
// A single text output passes through verbatim. An empty output falls back
// to the sibling text blocks of the carrying message. Multimodal output is
// rendered as a bullet list: most chat wire formats cannot embed tool-result
// media inline, so media items become a textual pointer to their original
// location. This is deliberately lossy.
func RenderToolResult(tr types.ToolResultBlock, msg *types.Message) string {
	if len(tr.Output) == 0 {
		return msg.Text()
	}
	if len(tr.Output) == 1 {
		if t, ok := tr.Output[0].(types.TextBlock); ok {
			return t.Text
		}
	}

	multimodal := false
	for _, b := range tr.Output {
		if _, ok := types.MediaSource(b); ok {
			multimodal = true
			break
		}
	}

	if !multimodal {
		var texts []string
		for _, b := range tr.Output {
			if t, ok := b.(types.TextBlock); ok {
				texts = append(texts, t.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	var lines []string
	for _, b := range tr.Output {
		switch v := b.(type) {
		case types.TextBlock:
			lines = append(lines, "- "+v.Text)
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			src, _ := types.MediaSource(b)
			lines = append(lines, fmt.Sprintf("- The returned %s can be found at: %s",
				b.Kind(), describeSource(src)))
		}
	}
	return strings.Join(lines, "\n")
}

// describeSource renders the original location of a media source for the
// textual tool-result proxy: local paths and URLs pass through untouched,
// inline payloads get a placeholder since they have no address.
func describeSource(src types.Source) string {
	switch s := src.(type) {
	case types.URLSource:
		return s.URL
	case types.Base64Source:
		return fmt.Sprintf("[inline base64 %s data]", s.MediaType)
	default:
		return "[unknown source]"
	}
}

// EncodeSource converts a media source into the string payload carried on
// the wire: remote URLs and data URIs pass through, local filesystem paths
// become absolute file:// URIs or base64 data URIs depending on caps, and
// inline base64 payloads are wrapped as data URIs. A source that is neither
// a URL nor base64 data is an ErrFormat.
func EncodeSource(src types.Source, caps Capabilities) (string, error) {
	switch s := src.(type) {
	case types.URLSource:
		u := strings.TrimSpace(s.URL)
		if u == "" {
			return "", types.NewError(types.ErrFormat, "media source has empty URL")
		}
		if strings.Contains(u, "://") || strings.HasPrefix(u, "data:") {
			return u, nil
		}
		abs, err := filepath.Abs(u)
		if err != nil {
			return "", types.Errorf(types.ErrFormat, "cannot resolve media path %q", u).WithCause(err)
		}
		if caps.InlineBase64 {
			if uri, ok := inlineFile(abs); ok {
				return uri, nil
			}
		}
		return "file://" + abs, nil

	case types.Base64Source:
		if s.Data == "" {
			return "", types.NewError(types.ErrFormat, "base64 media source has no data")
		}
		mediaType := s.MediaType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		return "data:" + mediaType + ";base64," + s.Data, nil

	default:
		return "", types.NewError(types.ErrFormat, "media source is neither URL nor base64")
	}
}

// inlineFile reads a local file and wraps it as a base64 data URI. Returns
// false when the file cannot be read; the caller then falls back to a
// file:// URI.
func inlineFile(abs string) (string, bool) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", false
	}
	mediaType := mime.TypeByExtension(filepath.Ext(abs))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// marshalToolInput serializes tool-call arguments. An empty input map
// yields "{}" so the wire entry is always valid JSON, even when the
// original raw text failed to parse.
func marshalToolInput(b types.ToolUseBlock) string {
	if len(b.Input) == 0 {
		return "{}"
	}
	data, err := json.Marshal(b.Input)
	if err != nil {
		return "{}"
	}
	return string(data)
}
