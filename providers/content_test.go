package providers

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orvane/agentcore/types"
)

func testParts(kind, payload string) (ContentPart, bool) {
	switch kind {
	case types.BlockText:
		return ContentPart{"type": "text", "text": payload}, true
	case types.BlockImage:
		return ContentPart{"type": "image_url", "image_url": map[string]any{"url": payload}}, true
	case types.BlockAudio:
		return ContentPart{"type": "audio_url", "audio_url": map[string]any{"url": payload}}, true
	default:
		return nil, false
	}
}

var allCaps = Capabilities{Image: true, Audio: true, Video: false}

func formatOne(t *testing.T, msg types.Message) []ChatMessage {
	t.Helper()
	out, err := FormatMessages([]types.Message{msg}, allCaps, testParts, zap.NewNop())
	require.NoError(t, err)
	return out
}

func TestFormatMessages_Empty(t *testing.T) {
	t.Parallel()

	out, err := FormatMessages(nil, allCaps, testParts, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFormatMessages_SingleSystemMessage(t *testing.T) {
	t.Parallel()

	out := formatOne(t, types.NewSystemMessage("Ping"))
	require.Len(t, out, 1)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "Ping", out[0].Content)
}

func TestFormatMessages_ThinkingExcluded(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleAssistant,
		types.ThinkingBlock{Thinking: "secret reasoning"},
		types.TextBlock{Text: "visible answer"},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret reasoning")
	assert.Contains(t, string(data), "visible answer")
}

func TestFormatMessages_ConsecutiveTextJoined(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleUser,
		types.TextBlock{Text: "line one"},
		types.TextBlock{Text: "line two"},
		types.TextBlock{Text: "line three"},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	assert.Equal(t, "line one\nline two\nline three", out[0].Content)
}

func TestFormatMessages_MediaSwitchesToParts(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleUser,
		types.TextBlock{Text: "look at this"},
		types.ImageBlock{Source: types.URLSource{URL: "https://example.com/cat.png"}},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)

	parts, ok := out[0].Content.([]ContentPart)
	require.True(t, ok, "media message must use structured content")
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "look at this", parts[0]["text"])
	assert.Equal(t, "image_url", parts[1]["type"])
}

func TestFormatMessages_ToolCallRoundTrip(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleAssistant,
		types.ToolUseBlock{ID: "1", Name: "get_capital", Input: map[string]any{"country": "Japan"}},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	require.Len(t, out[0].ToolCalls, 1)

	tc := out[0].ToolCalls[0]
	assert.Equal(t, "1", tc.ID)
	assert.Equal(t, "function", tc.Type)
	assert.Equal(t, "get_capital", tc.Function.Name)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(tc.Function.Arguments), &args))
	assert.Equal(t, map[string]any{"country": "Japan"}, args)

	// Tool-call-only assistant message still carries a content field.
	assert.Nil(t, out[0].Content)
	data, err := json.Marshal(out[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":null`)
}

func TestFormatMessages_FragmentNeverFormatted(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleAssistant,
		types.ToolUseBlock{ID: "9", Fragment: true, RawInput: `{"coun`},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].ToolCalls)
}

func TestFormatMessages_UnsupportedMediaDegrades(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleUser,
		types.VideoBlock{Source: types.URLSource{URL: "https://example.com/v.mp4"}},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	content, ok := out[0].Content.(string)
	require.True(t, ok)
	assert.Contains(t, content, "unsupported video content omitted")
}

func TestRenderToolResult_SingleText(t *testing.T) {
	t.Parallel()

	msg := types.NewToolMessage("1", "get_capital", types.TextBlock{Text: "Tokyo"})
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	assert.Equal(t, "tool", out[0].Role)
	assert.Equal(t, "1", out[0].ToolCallID)
	assert.Equal(t, "Tokyo", out[0].Content)
}

func TestRenderToolResult_EmptyOutputFallsBackToSiblingText(t *testing.T) {
	t.Parallel()

	msg := types.NewMessage(types.RoleTool,
		types.ToolResultBlock{ToolID: "1", Name: "noop"},
		types.TextBlock{Text: "fallback text"},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)
	assert.Equal(t, "fallback text", out[0].Content)
}

func TestRenderToolResult_MultimodalDegradation(t *testing.T) {
	t.Parallel()

	msg := types.NewToolMessage("1", "lookup",
		types.TextBlock{Text: "The capital of Japan is Tokyo."},
		types.ImageBlock{Source: types.URLSource{URL: "/tmp/map.png"}},
		types.AudioBlock{Source: types.Base64Source{MediaType: "audio/wav", Data: "UklGRg=="}},
	)
	out := formatOne(t, msg)
	require.Len(t, out, 1)

	content := out[0].Content.(string)
	lines := strings.Split(content, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "The capital of Japan is Tokyo.")
	assert.Contains(t, lines[1], "The returned image can be found at: /tmp/map.png")
	assert.Contains(t, lines[2], "The returned audio can be found at:")
}

func TestEncodeSource(t *testing.T) {
	t.Parallel()

	uri, err := EncodeSource(types.URLSource{URL: "https://example.com/a.png"}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", uri)

	uri, err = EncodeSource(types.URLSource{URL: "relative/path.png"}, Capabilities{})
	require.NoError(t, err)
	abs, _ := filepath.Abs("relative/path.png")
	assert.Equal(t, "file://"+abs, uri)

	uri, err = EncodeSource(types.Base64Source{MediaType: "image/png", Data: "aGk="}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGk=", uri)

	_, err = EncodeSource(types.URLSource{URL: "  "}, Capabilities{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrFormat))

	_, err = EncodeSource(types.Base64Source{MediaType: "image/png"}, Capabilities{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrFormat))
}

func TestFormatMessages_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	msgs := []types.Message{
		types.NewMessage(types.RoleUser,
			types.TextBlock{Text: "a"},
			types.ImageBlock{Source: types.URLSource{URL: "https://e.com/i.png"}},
		),
	}
	before, err := json.Marshal(msgs)
	require.NoError(t, err)

	_, err = FormatMessages(msgs, allCaps, testParts, zap.NewNop())
	require.NoError(t, err)

	after, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
