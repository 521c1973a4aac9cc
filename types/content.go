package types

import (
	"encoding/json"
	"fmt"
)

// Block kind identifiers, used as the "type" discriminator when blocks are
// serialized and when providers group blocks by target wire field.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockImage      = "image"
	BlockAudio      = "audio"
	BlockVideo      = "video"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one typed unit of message content. The variant set is
// closed: Text, Thinking, Image, Audio, Video, ToolUse, ToolResult. New
// variants are a breaking change for every formatter, which is why the
// interface is sealed with an unexported method.
type ContentBlock interface {
	// Kind returns the block's type discriminator (BlockText, BlockImage, ...).
	Kind() string

	contentBlock()
}

// TextBlock is plain text content.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) Kind() string  { return BlockText }
func (TextBlock) contentBlock() {}

// ThinkingBlock is chain-of-thought text. It is never sent to a provider;
// formatters drop it and it exists only for the caller's own bookkeeping.
type ThinkingBlock struct {
	Thinking string `json:"thinking"`
}

func (ThinkingBlock) Kind() string  { return BlockThinking }
func (ThinkingBlock) contentBlock() {}

// ImageBlock carries image media.
type ImageBlock struct {
	Source Source `json:"source"`
}

func (ImageBlock) Kind() string  { return BlockImage }
func (ImageBlock) contentBlock() {}

// AudioBlock carries audio media.
type AudioBlock struct {
	Source Source `json:"source"`
}

func (AudioBlock) Kind() string  { return BlockAudio }
func (AudioBlock) contentBlock() {}

// VideoBlock carries video media.
type VideoBlock struct {
	Source Source `json:"source"`
}

func (VideoBlock) Kind() string  { return BlockVideo }
func (VideoBlock) contentBlock() {}

// ToolUseBlock is a tool invocation request emitted by the model.
//
// During streaming a tool call may arrive split across chunks: a chunk that
// carries no tool name is a continuation of a previously started call. Such
// blocks have Fragment set and an empty Name, and must be merged by ID (see
// providers.ToolCallAccumulator) before they can be treated as real calls.
type ToolUseBlock struct {
	ID   string         `json:"id"`
	Name string         `json:"name,omitempty"`
	// Input holds the parsed arguments. Empty when the raw argument text
	// was not valid JSON; RawInput then retains the text for diagnostics.
	Input    map[string]any `json:"input,omitempty"`
	RawInput string         `json:"raw_input,omitempty"`
	Fragment bool           `json:"fragment,omitempty"`
}

func (ToolUseBlock) Kind() string  { return BlockToolUse }
func (ToolUseBlock) contentBlock() {}

// ToolResultBlock is the outcome of a tool invocation. Output is itself an
// ordered list of blocks: tool results can be multimodal (text plus images
// or audio).
type ToolResultBlock struct {
	ToolID string         `json:"tool_id"`
	Name   string         `json:"name,omitempty"`
	Output []ContentBlock `json:"output,omitempty"`
}

func (ToolResultBlock) Kind() string  { return BlockToolResult }
func (ToolResultBlock) contentBlock() {}

// MediaSource returns the Source of a media block and true, or nil and
// false for non-media blocks.
func MediaSource(b ContentBlock) (Source, bool) {
	switch v := b.(type) {
	case ImageBlock:
		return v.Source, true
	case AudioBlock:
		return v.Source, true
	case VideoBlock:
		return v.Source, true
	default:
		return nil, false
	}
}

// blockEnvelope is the serialized form of a ContentBlock. A flat envelope
// with a type discriminator keeps the three stores (working, original,
// offload) independently serializable without reflection tricks.
type blockEnvelope struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Source   *sourceEnvelope  `json:"source,omitempty"`
	ID       string           `json:"id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Input    map[string]any   `json:"input,omitempty"`
	RawInput string           `json:"raw_input,omitempty"`
	Fragment bool             `json:"fragment,omitempty"`
	ToolID   string           `json:"tool_id,omitempty"`
	Output   []*blockEnvelope `json:"output,omitempty"`
}

func envelopeFromBlock(b ContentBlock) *blockEnvelope {
	switch v := b.(type) {
	case TextBlock:
		return &blockEnvelope{Type: BlockText, Text: v.Text}
	case ThinkingBlock:
		return &blockEnvelope{Type: BlockThinking, Text: v.Thinking}
	case ImageBlock:
		return &blockEnvelope{Type: BlockImage, Source: envelopeFromSource(v.Source)}
	case AudioBlock:
		return &blockEnvelope{Type: BlockAudio, Source: envelopeFromSource(v.Source)}
	case VideoBlock:
		return &blockEnvelope{Type: BlockVideo, Source: envelopeFromSource(v.Source)}
	case ToolUseBlock:
		return &blockEnvelope{
			Type:     BlockToolUse,
			ID:       v.ID,
			Name:     v.Name,
			Input:    v.Input,
			RawInput: v.RawInput,
			Fragment: v.Fragment,
		}
	case ToolResultBlock:
		env := &blockEnvelope{Type: BlockToolResult, ToolID: v.ToolID, Name: v.Name}
		for _, out := range v.Output {
			env.Output = append(env.Output, envelopeFromBlock(out))
		}
		return env
	default:
		return &blockEnvelope{Type: "unknown"}
	}
}

func (e *blockEnvelope) toBlock() (ContentBlock, error) {
	switch e.Type {
	case BlockText:
		return TextBlock{Text: e.Text}, nil
	case BlockThinking:
		return ThinkingBlock{Thinking: e.Text}, nil
	case BlockImage, BlockAudio, BlockVideo:
		src, err := e.Source.toSource()
		if err != nil {
			return nil, err
		}
		switch e.Type {
		case BlockImage:
			return ImageBlock{Source: src}, nil
		case BlockAudio:
			return AudioBlock{Source: src}, nil
		default:
			return VideoBlock{Source: src}, nil
		}
	case BlockToolUse:
		return ToolUseBlock{
			ID:       e.ID,
			Name:     e.Name,
			Input:    e.Input,
			RawInput: e.RawInput,
			Fragment: e.Fragment,
		}, nil
	case BlockToolResult:
		tr := ToolResultBlock{ToolID: e.ToolID, Name: e.Name}
		for _, out := range e.Output {
			b, err := out.toBlock()
			if err != nil {
				return nil, err
			}
			tr.Output = append(tr.Output, b)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown content block type %q", e.Type)
	}
}

// Blocks is an ordered list of ContentBlocks with JSON support for the
// interface values.
type Blocks []ContentBlock

// MarshalJSON serializes each block as a flat envelope with a "type" field.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	envs := make([]*blockEnvelope, 0, len(bs))
	for _, b := range bs {
		envs = append(envs, envelopeFromBlock(b))
	}
	return json.Marshal(envs)
}

// UnmarshalJSON restores blocks from their envelope form.
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var envs []*blockEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	out := make(Blocks, 0, len(envs))
	for _, env := range envs {
		b, err := env.toBlock()
		if err != nil {
			return err
		}
		out = append(out, b)
	}
	*bs = out
	return nil
}
