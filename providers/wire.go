package providers

// OpenAI-compatible chat wire types. Both bundled formatters target this
// shape: OpenAI natively, DashScope through its compatible mode.

// ChatMessage is one wire-level chat message. Content is either a plain
// string (pure-text messages) or a []ContentPart once any media is present.
// A nil Content marshals as JSON null, which assistant messages carrying
// only tool calls require for schema compliance.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ContentPart is one element of structured multi-part content. The key set
// is provider-specific, so it stays an open map built by each formatter's
// PartBuilder.
type ContentPart map[string]any

// ToolCall is a wire-level tool invocation entry.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON-encoded arguments.
// Arguments is the raw argument text: during streaming it may hold an
// incomplete JSON fragment.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// Usage reports token counters for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseMessage is the assistant message inside a non-streamed response.
// ReasoningContent carries provider "thinking" text when the model exposes
// it.
type ResponseMessage struct {
	Role             string     `json:"role"`
	Content          string     `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Index        int             `json:"index"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Message      ResponseMessage `json:"message"`
}

// ChatResponse is a full non-streamed chat response.
type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
	Created int64        `json:"created,omitempty"`
}

// Delta is the incremental payload of one streamed choice.
type Delta struct {
	Role             string          `json:"role,omitempty"`
	Content          string          `json:"content,omitempty"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	ToolCalls        []DeltaToolCall `json:"tool_calls,omitempty"`
}

// DeltaToolCall is a streamed tool-call fragment. Continuation chunks carry
// only Index and an argument piece; ID and Name appear on the chunk that
// opens the call.
type DeltaToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// ChunkChoice is one choice inside a streamed chunk.
type ChunkChoice struct {
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason,omitempty"`
	Delta        Delta  `json:"delta"`
}

// ChatChunk is one streamed response chunk.
type ChatChunk struct {
	ID      string        `json:"id,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}
