package dashscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orvane/agentcore/providers"
	"github.com/orvane/agentcore/types"
)

func TestFormat_MultimodalParts(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop())
	msg := types.NewMessage(types.RoleUser,
		types.TextBlock{Text: "describe these"},
		types.ImageBlock{Source: types.URLSource{URL: "https://example.com/cat.png"}},
		types.VideoBlock{Source: types.URLSource{URL: "https://example.com/cat.mp4"}},
	)

	out, err := f.Format([]types.Message{msg})
	require.NoError(t, err)
	require.Len(t, out, 1)

	parts := out[0].Content.([]providers.ContentPart)
	require.Len(t, parts, 3)
	assert.Equal(t, "describe these", parts[0]["text"])
	assert.Equal(t, "https://example.com/cat.png", parts[1]["image"])
	assert.Equal(t, "https://example.com/cat.mp4", parts[2]["video"])
}

func TestFormat_LocalPathBecomesFileURI(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop())
	msg := types.NewMessage(types.RoleUser,
		types.ImageBlock{Source: types.URLSource{URL: "/data/img/chart.png"}},
	)

	out, err := f.Format([]types.Message{msg})
	require.NoError(t, err)

	parts := out[0].Content.([]providers.ContentPart)
	require.Len(t, parts, 1)
	assert.Equal(t, "file:///data/img/chart.png", parts[0]["image"])
}

func TestFormat_PureTextStaysScalar(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop())
	out, err := f.Format([]types.Message{types.NewUserMessage("hello")})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Content)
}

func TestParseResponse_Reasoning(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop())
	resp := &providers.ChatResponse{
		Choices: []providers.ChatChoice{{
			Message: providers.ResponseMessage{
				Role:             "assistant",
				ReasoningContent: "considering",
				Content:          "done",
			},
		}},
	}

	parsed, err := f.ParseResponse(resp)
	require.NoError(t, err)
	require.Len(t, parsed.Message.Blocks, 2)
	assert.Equal(t, "considering", parsed.Message.Blocks[0].(types.ThinkingBlock).Thinking)
	assert.Equal(t, "done", parsed.Message.Blocks[1].(types.TextBlock).Text)
}
