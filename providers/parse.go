package providers

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/orvane/agentcore/types"
)

// ParseToolArguments parses the raw argument text of a tool call. Malformed
// JSON never fails: the parsed map is nil and the raw text is returned for
// retention on the block.
func ParseToolArguments(raw string) (map[string]any, string) {
	if raw == "" {
		return nil, ""
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, raw
	}
	return input, ""
}

// ParseOpenAICompatible converts an OpenAI-compatible response into a
// message. Block order is fixed as Thinking, Text, ToolUse; downstream
// rendering relies on it.
func ParseOpenAICompatible(resp *ChatResponse, provider string, logger *zap.Logger) (*ParsedResponse, error) {
	if resp == nil {
		return nil, types.NewError(types.ErrParse, "nil chat response").WithProvider(provider)
	}

	parsed := &ParsedResponse{}
	if resp.Usage != nil {
		parsed.Usage = types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if len(resp.Choices) == 0 {
		logger.Warn("chat response has no choices, producing empty message",
			zap.String("provider", provider), zap.String("response_id", resp.ID))
		parsed.Message = types.NewMessage(types.RoleAssistant)
		return parsed, nil
	}

	msg := resp.Choices[0].Message
	var blocks []types.ContentBlock
	if msg.ReasoningContent != "" {
		blocks = append(blocks, types.ThinkingBlock{Thinking: msg.ReasoningContent})
	}
	if msg.Content != "" {
		blocks = append(blocks, types.TextBlock{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, toolUseFromCall(tc))
	}

	parsed.Message = types.NewMessage(types.RoleAssistant, blocks...)
	return parsed, nil
}

// ParseOpenAICompatibleChunk converts one streamed chunk into a message
// delta and feeds tool-call pieces into acc when provided.
func ParseOpenAICompatibleChunk(chunk *ChatChunk, acc *ToolCallAccumulator, provider string, logger *zap.Logger) (*ParsedResponse, error) {
	if chunk == nil {
		return nil, types.NewError(types.ErrParse, "nil chat chunk").WithProvider(provider)
	}

	parsed := &ParsedResponse{}
	if chunk.Usage != nil {
		parsed.Usage = types.TokenUsage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}

	if len(chunk.Choices) == 0 {
		parsed.Message = types.NewMessage(types.RoleAssistant)
		return parsed, nil
	}

	delta := chunk.Choices[0].Delta
	var blocks []types.ContentBlock
	if delta.ReasoningContent != "" {
		blocks = append(blocks, types.ThinkingBlock{Thinking: delta.ReasoningContent})
	}
	if delta.Content != "" {
		blocks = append(blocks, types.TextBlock{Text: delta.Content})
	}
	for _, dtc := range delta.ToolCalls {
		if acc != nil {
			acc.Observe(dtc)
		}
		blocks = append(blocks, toolUseFromDelta(dtc))
	}

	parsed.Message = types.NewMessage(types.RoleAssistant, blocks...)
	return parsed, nil
}

func toolUseFromCall(tc ToolCall) types.ToolUseBlock {
	input, raw := ParseToolArguments(tc.Function.Arguments)
	return types.ToolUseBlock{
		ID:       tc.ID,
		Name:     tc.Function.Name,
		Input:    input,
		RawInput: raw,
	}
}

// toolUseFromDelta converts a streamed tool-call piece. A piece without a
// name is a continuation of an earlier call and is tagged as a fragment;
// a named piece whose arguments do not yet parse is a fragment too. Only a
// named piece with complete JSON arguments stands on its own.
func toolUseFromDelta(dtc DeltaToolCall) types.ToolUseBlock {
	raw := dtc.Function.Arguments
	if dtc.Function.Name == "" {
		return types.ToolUseBlock{ID: dtc.ID, RawInput: raw, Fragment: true}
	}
	input, rest := ParseToolArguments(raw)
	if raw != "" && input == nil {
		return types.ToolUseBlock{
			ID:       dtc.ID,
			Name:     dtc.Function.Name,
			RawInput: rest,
			Fragment: true,
		}
	}
	return types.ToolUseBlock{
		ID:    dtc.ID,
		Name:  dtc.Function.Name,
		Input: input,
	}
}
