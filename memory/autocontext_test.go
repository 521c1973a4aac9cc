package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvane/agentcore/types"
)

// stubSummarizer returns a fixed summary and records what it was given.
// Round summarization calls it from multiple goroutines.
type stubSummarizer struct {
	mu    sync.Mutex
	calls [][]types.Message
	text  string
	err   error
}

func (s *stubSummarizer) Summarize(_ context.Context, msgs []types.Message) (types.Message, error) {
	s.mu.Lock()
	s.calls = append(s.calls, msgs)
	s.mu.Unlock()
	if s.err != nil {
		return types.Message{}, s.err
	}
	return types.NewAssistantMessage(s.text), nil
}

func toolExchange(id, name, args, result string) []types.Message {
	return []types.Message{
		types.NewMessage(types.RoleAssistant, types.ToolUseBlock{
			ID: id, Name: name, Input: map[string]any{"q": args},
		}),
		types.NewToolMessage(id, name, types.TextBlock{Text: result}),
	}
}

func TestNoCompressionUnderThreshold(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{MsgThreshold: 10})

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Add(ctx, types.NewUserMessage("hello")))
	}

	msgs, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
	assert.Len(t, m.Original(), 5)
}

func TestOriginalLogNeverCompressed(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{text: "condensed"}
	m := NewAutoContextMemory(
		AutoContextConfig{MsgThreshold: 5, MinConsecutiveToolMessages: 2},
		WithSummarizer(sum),
	)

	require.NoError(t, m.Add(ctx, types.NewUserMessage("do the thing")))
	for _, msg := range toolExchange("t1", "search", "a", "result a") {
		require.NoError(t, m.Add(ctx, msg))
	}
	for _, msg := range toolExchange("t2", "search", "b", "result b") {
		require.NoError(t, m.Add(ctx, msg))
	}
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("done")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("next question")))

	msgs, err := m.Get(ctx)
	require.NoError(t, err)

	assert.Less(t, len(msgs), 7)
	assert.Len(t, m.Original(), 7, "original log keeps every message")

	found := false
	for _, msg := range msgs {
		if strings.Contains(msg.Text(), "[Tool activity summary]") {
			found = true
			assert.Contains(t, msg.Text(), "condensed")
		}
	}
	assert.True(t, found, "tool run replaced by a summary message")
	require.Len(t, sum.calls, 1)
	assert.Len(t, sum.calls[0], 4)
}

func TestPlanRunReplacedByStub(t *testing.T) {
	ctx := context.Background()
	// No summarizer: plan runs must still be collapsed.
	m := NewAutoContextMemory(AutoContextConfig{
		MsgThreshold:               4,
		MinConsecutiveToolMessages: 2,
		PlanToolNames:              []string{"plan"},
	})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("plan my trip")))
	for _, msg := range toolExchange("p1", "plan", "trip", "plan updated") {
		require.NoError(t, m.Add(ctx, msg))
	}
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("planned")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("go on")))

	msgs, err := m.Get(ctx)
	require.NoError(t, err)

	joined := ""
	for _, msg := range msgs {
		joined += msg.Text() + "\n"
	}
	assert.Contains(t, joined, "Plan tool activity omitted")
	assert.NotContains(t, joined, "plan updated")
}

func TestSummarizerFailureKeepsRun(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{err: errors.New("model unavailable")}
	m := NewAutoContextMemory(
		AutoContextConfig{MsgThreshold: 5, MinConsecutiveToolMessages: 2},
		WithSummarizer(sum),
	)

	require.NoError(t, m.Add(ctx, types.NewUserMessage("q")))
	for _, msg := range toolExchange("t1", "search", "a", "result a") {
		require.NoError(t, m.Add(ctx, msg))
	}
	for _, msg := range toolExchange("t2", "search", "b", "result b") {
		require.NoError(t, m.Add(ctx, msg))
	}
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("done")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("again")))

	msgs, err := m.Get(ctx)
	require.NoError(t, err, "a failing summarizer degrades, it never surfaces")
	assert.Len(t, msgs, 7, "run kept intact when summarization fails")
}

func TestOffloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{
		MsgThreshold:      3,
		LargePayloadBytes: 100,
		PreviewChars:      20,
		KeepLast:          1,
	})

	large := strings.Repeat("x", 500)
	require.NoError(t, m.Add(ctx, types.NewUserMessage("start")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage(large)))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("next")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("ok")))

	msgs, err := m.Get(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	preview := msgs[1]
	id, ok := preview.Metadata[MetadataOffloadID].(string)
	require.True(t, ok, "preview carries its offload reference")
	assert.Contains(t, preview.Text(), "offloaded")
	assert.Less(t, len(preview.Text()), len(large))

	full, err := m.RetrieveOffloaded(id)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, large, full[0].Text())
}

func TestRetrieveOffloadedUnknownID(t *testing.T) {
	m := NewAutoContextMemory(AutoContextConfig{})

	_, err := m.RetrieveOffloaded("nope")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrOffloadNotFound))
}

func TestKeepLastExemption(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{
		MsgThreshold:      100,
		LargePayloadBytes: 100,
		PreviewChars:      20,
		KeepLast:          3,
	})

	large := strings.Repeat("y", 400)
	require.NoError(t, m.Add(ctx, types.NewUserMessage("q")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage(large))) // old, eligible
	require.NoError(t, m.Add(ctx, types.NewUserMessage("more")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage(large))) // recent, exempt
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("tail")))

	assert.True(t, m.offloadLarge(ctx, true))

	assert.NotNil(t, m.working[1].Metadata[MetadataOffloadID])
	assert.Nil(t, m.working[3].Metadata[MetadataOffloadID], "messages inside keep-last stay intact")

	// The second pass drops the exemption.
	assert.True(t, m.offloadLarge(ctx, false))
	assert.NotNil(t, m.working[3].Metadata[MetadataOffloadID])
}

func TestOffloadedToolMessageKeepsResultEnvelope(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{
		LargePayloadBytes: 100,
		PreviewChars:      30,
		KeepLast:          1,
	})

	large := strings.Repeat("z", 400)
	require.NoError(t, m.Add(ctx, types.NewUserMessage("q")))
	require.NoError(t, m.Add(ctx, types.NewToolMessage("call-1", "fetch", types.TextBlock{Text: large})))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("done")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("tail")))

	require.True(t, m.offloadLarge(ctx, false))

	preview := m.working[1]
	assert.Equal(t, types.RoleTool, preview.Role)
	results := preview.ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call-1", results[0].ToolID)
	assert.Equal(t, "fetch", results[0].Name)
}

func TestThresholdCompressesPlainMessages(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{text: "earlier chatter"}
	m := NewAutoContextMemory(
		AutoContextConfig{MsgThreshold: 30},
		WithSummarizer(sum),
	)

	for i := 0; i < 31; i++ {
		require.NoError(t, m.Add(ctx, types.NewUserMessage(fmt.Sprintf("note %d", i))))
	}

	msgs, err := m.Get(ctx)
	require.NoError(t, err)

	assert.Less(t, len(msgs), 31, "working log shrinks past the message threshold")
	assert.Len(t, m.Original(), 31, "original log keeps all messages")
	require.NotEmpty(t, sum.calls, "plain single-message rounds are batched for summarization")

	assert.Contains(t, msgs[0].Text(), "[Round summary]")
	assert.Equal(t, "note 30", msgs[len(msgs)-1].Text(), "latest turn stays verbatim")
}

func TestBatchRounds(t *testing.T) {
	u := func(text string) []types.Message { return []types.Message{types.NewUserMessage(text)} }
	complete := []types.Message{types.NewUserMessage("q"), types.NewAssistantMessage("a")}

	batches := batchRounds([][]types.Message{u("1"), u("2"), complete, u("3")})
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2, "consecutive singleton rounds coalesce")
	assert.Len(t, batches[1], 2)
	assert.Equal(t, "q", batches[1][0].Text())
	assert.Len(t, batches[2], 1, "a lone singleton stays its own batch")
}

func TestRoundSummarization(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{text: "we discussed things"}
	m := NewAutoContextMemory(
		AutoContextConfig{MsgThreshold: 4},
		WithSummarizer(sum),
	)

	require.NoError(t, m.Add(ctx, types.NewSystemMessage("be helpful")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("first question")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("first answer")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("second question")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("second answer")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("current question")))

	msgs, err := m.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, "be helpful", msgs[0].Text(), "system prelude survives")
	assert.Equal(t, "current question", msgs[len(msgs)-1].Text(), "current round untouched")

	summaries := 0
	for _, msg := range msgs {
		if strings.Contains(msg.Text(), "[Round summary]") {
			summaries++
		}
	}
	assert.Equal(t, 2, summaries)
	assert.Len(t, sum.calls, 2)
}

func TestCurrentRoundToolResultTruncation(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{
		LargePayloadBytes: 100,
		PreviewChars:      30,
	})

	large := strings.Repeat("r", 500)
	require.NoError(t, m.Add(ctx, types.NewUserMessage("current")))
	require.NoError(t, m.Add(ctx, types.NewMessage(types.RoleAssistant, types.ToolUseBlock{
		ID: "c1", Name: "fetch", Input: map[string]any{"url": "http://example.com"},
	})))
	require.NoError(t, m.Add(ctx, types.NewToolMessage("c1", "fetch", types.TextBlock{Text: large})))

	require.True(t, m.compressCurrentRound(ctx))

	uses := m.working[1].ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "c1", uses[0].ID, "tool call blocks stay intact")

	results := m.working[2].ToolResults()
	require.Len(t, results, 1)
	text := types.Message{Blocks: results[0].Output}.Text()
	assert.Contains(t, text, "[Tool result truncated.]")
	assert.Less(t, len(text), len(large))
}

func TestExplicitCompress(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{MsgThreshold: 3})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("one")))
	err := m.Compress(ctx)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCompressionSkipped))

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Add(ctx, types.NewUserMessage("filler")))
	}
	assert.NoError(t, m.Compress(ctx))
}

func TestClearKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("hi")))
	m.offload.Put("ref", []types.Message{types.NewUserMessage("stored")})

	require.NoError(t, m.Clear(ctx))

	assert.Equal(t, 0, m.Size())
	assert.Len(t, m.Original(), 1)

	_, err := m.RetrieveOffloaded("ref")
	assert.True(t, types.IsErrorCode(err, types.ErrOffloadNotFound))
}

func TestResetWipesEverything(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("hi")))
	m.offload.Put("ref", []types.Message{types.NewUserMessage("stored")})

	require.NoError(t, m.Reset(ctx))

	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.Original())
	assert.Equal(t, 0, m.offload.Len())
}

func TestDeleteOnlyAffectsWorking(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("a")))
	require.NoError(t, m.Add(ctx, types.NewUserMessage("b")))

	require.NoError(t, m.Delete(ctx, 0))
	assert.Equal(t, 1, m.Size())
	assert.Len(t, m.Original(), 2)

	assert.Error(t, m.Delete(ctx, 9))
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	m := NewAutoContextMemory(AutoContextConfig{})

	require.NoError(t, m.Add(ctx, types.NewUserMessage("turn one")))
	require.NoError(t, m.Add(ctx, types.NewAssistantMessage("reply one")))
	m.offload.Put("ref", []types.Message{types.NewAssistantMessage("big thing")})

	working, original, offload := m.Snapshot()

	restored := NewAutoContextMemory(AutoContextConfig{})
	restored.Restore(working, original, offload)

	assert.Equal(t, 2, restored.Size())
	assert.Len(t, restored.Original(), 2)
	full, err := restored.RetrieveOffloaded("ref")
	require.NoError(t, err)
	assert.Equal(t, "big thing", full[0].Text())
}

func TestRateLimitedSummarizer(t *testing.T) {
	inner := &stubSummarizer{text: "summary"}
	s := NewRateLimitedSummarizer(inner, 100, 1)

	out, err := s.Summarize(context.Background(), []types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "summary", out.Text())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Summarize(ctx, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrSummarizer))
}

func TestTranscript(t *testing.T) {
	msgs := []types.Message{
		types.NewUserMessage("look this up").WithName("alice"),
		types.NewMessage(types.RoleAssistant, types.ToolUseBlock{
			ID: "c1", Name: "search", Input: map[string]any{"q": "weather"},
		}),
		types.NewToolMessage("c1", "search", types.TextBlock{Text: "sunny"}),
	}

	out := Transcript(msgs)
	assert.Contains(t, out, "[user alice] look this up")
	assert.Contains(t, out, "call search")
	assert.Contains(t, out, "result search: sunny")
}
