package providers

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/orvane/agentcore/types"
)

// Formatting is a pure function of its input and static capabilities:
// formatting the same list twice must yield byte-identical output, for any
// block mix.
func TestFormatMessages_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msgs := rapid.SliceOfN(messageGen(), 0, 8).Draw(t, "msgs")

		first, err1 := FormatMessages(msgs, allCaps, testParts, zap.NewNop())
		second, err2 := FormatMessages(msgs, allCaps, testParts, zap.NewNop())

		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("error mismatch: %v vs %v", err1, err2)
		}
		if err1 != nil {
			return
		}

		a, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal first: %v", err)
		}
		b, err := json.Marshal(second)
		if err != nil {
			t.Fatalf("marshal second: %v", err)
		}
		if string(a) != string(b) {
			t.Fatalf("formatting not deterministic:\n%s\n%s", a, b)
		}
	})
}

func messageGen() *rapid.Generator[types.Message] {
	return rapid.Custom(func(t *rapid.T) types.Message {
		role := rapid.SampledFrom([]types.Role{
			types.RoleSystem, types.RoleUser, types.RoleAssistant,
		}).Draw(t, "role")

		n := rapid.IntRange(0, 4).Draw(t, "blocks")
		blocks := make([]types.ContentBlock, 0, n)
		for i := 0; i < n; i++ {
			blocks = append(blocks, blockGen().Draw(t, "block"))
		}
		return types.NewMessage(role, blocks...)
	})
}

func blockGen() *rapid.Generator[types.ContentBlock] {
	return rapid.Custom(func(t *rapid.T) types.ContentBlock {
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			return types.TextBlock{Text: rapid.String().Draw(t, "text")}
		case 1:
			return types.ThinkingBlock{Thinking: rapid.String().Draw(t, "thinking")}
		case 2:
			return types.ImageBlock{Source: types.URLSource{
				URL: "https://example.com/" + rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "path"),
			}}
		default:
			return types.ToolUseBlock{
				ID:    rapid.StringMatching(`[a-z0-9]{1,6}`).Draw(t, "id"),
				Name:  rapid.StringMatching(`[a-z_]{1,10}`).Draw(t, "name"),
				Input: map[string]any{"q": rapid.String().Draw(t, "q")},
			}
		}
	})
}
