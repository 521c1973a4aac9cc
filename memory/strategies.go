package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orvane/agentcore/types"
)

// planRunStub replaces runs that consist purely of plan-tool traffic.
// Plan state is tracked outside the conversation, so the stub only needs
// to mark that planning happened.
const planRunStub = "[Plan tool activity omitted; consult the current plan for its outcome.]"

// compressToolRuns collapses runs of consecutive tool traffic in past
// rounds into one summary message each. Runs made up entirely of plan
// tools get a fixed stub instead of a model call.
func (m *AutoContextMemory) compressToolRuns(ctx context.Context) bool {
	boundary := lastUserIndex(m.working)
	if boundary < 0 {
		boundary = len(m.working)
	}

	type span struct{ start, end int }
	var runs []span
	runStart := -1
	for i := 0; i < boundary; i++ {
		if m.working[i].IsToolRelated() {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 && i-runStart >= m.cfg.MinConsecutiveToolMessages {
			runs = append(runs, span{runStart, i})
		}
		runStart = -1
	}
	if runStart >= 0 && boundary-runStart >= m.cfg.MinConsecutiveToolMessages {
		runs = append(runs, span{runStart, boundary})
	}
	if len(runs) == 0 {
		return false
	}

	// Replace back to front so earlier span indexes stay valid.
	progressed := false
	for i := len(runs) - 1; i >= 0; i-- {
		run := m.working[runs[i].start:runs[i].end]
		var replacement types.Message
		if m.isPlanRun(run) {
			replacement = types.NewAssistantMessage(planRunStub)
		} else {
			if m.summarizer == nil {
				continue
			}
			summary, err := m.summarizer.Summarize(ctx, run)
			if err != nil {
				m.collector.RecordSummarizerFailure()
				m.logger.Warn("tool run summarization failed, keeping run",
					zap.Int("run_length", len(run)), zap.Error(err))
				continue
			}
			replacement = types.NewAssistantMessage("[Tool activity summary]\n" + summary.Text())
		}
		m.collector.RecordSummarized(len(run))
		rest := append([]types.Message{replacement}, m.working[runs[i].end:]...)
		m.working = append(m.working[:runs[i].start], rest...)
		progressed = true
	}
	return progressed
}

func (m *AutoContextMemory) isPlanRun(run []types.Message) bool {
	sawPlan := false
	for _, msg := range run {
		for _, use := range msg.ToolUses() {
			if !m.isPlanTool(use.Name) {
				return false
			}
			sawPlan = true
		}
		for _, res := range msg.ToolResults() {
			if !m.isPlanTool(res.Name) {
				return false
			}
			sawPlan = true
		}
	}
	return sawPlan
}

func (m *AutoContextMemory) isPlanTool(name string) bool {
	for _, plan := range m.cfg.PlanToolNames {
		if name == plan {
			return true
		}
	}
	return false
}

// offloadLarge moves oversized historical messages into the offload store,
// leaving a preview plus a reference ID in place. With exemptLast the
// newest KeepLast messages are spared; the second pass drops that
// exemption.
func (m *AutoContextMemory) offloadLarge(_ context.Context, exemptLast bool) bool {
	boundary := lastAssistantIndex(m.working)
	if boundary < 0 {
		return false
	}
	if exemptLast {
		if cutoff := len(m.working) - m.cfg.KeepLast; cutoff < boundary {
			boundary = cutoff
		}
	}

	offloaded := 0
	for i := 0; i < boundary; i++ {
		msg := m.working[i]
		if _, isPreview := msg.Metadata[MetadataOffloadID]; isPreview {
			continue
		}
		if serializedSize(msg) <= m.cfg.LargePayloadBytes {
			continue
		}
		id := uuid.NewString()
		m.offload.Put(id, []types.Message{msg})
		m.working[i] = m.previewMessage(msg, id)
		offloaded++
	}
	if offloaded == 0 {
		return false
	}
	m.collector.RecordOffloaded(offloaded)
	m.logger.Debug("offloaded large messages",
		zap.Int("count", offloaded), zap.Bool("exempt_last", exemptLast))
	return true
}

// previewMessage builds the stand-in left in the working log. Tool
// messages keep their result envelope so provider threading stays valid.
func (m *AutoContextMemory) previewMessage(msg types.Message, id string) types.Message {
	note := truncateRunes(flattenMessage(msg), m.cfg.PreviewChars) +
		"\n[Content offloaded under reference " + id + ". Retrieve it to see the full content.]"

	var preview types.Message
	if results := msg.ToolResults(); len(results) > 0 {
		first := results[0]
		preview = types.NewToolMessage(first.ToolID, first.Name, types.TextBlock{Text: note})
		preview.Role = msg.Role
	} else {
		preview = types.NewMessage(msg.Role, types.TextBlock{Text: note})
	}
	preview.Name = msg.Name
	preview.Timestamp = msg.Timestamp
	meta := map[string]any{MetadataOffloadID: id}
	for k, v := range msg.Metadata {
		if k != MetadataOffloadID {
			meta[k] = v
		}
	}
	preview.Metadata = meta
	return preview
}

// summarizeRounds collapses historical rounds into summary messages.
// Complete rounds (a user turn plus at least one response) are summarized
// one by one; runs of consecutive single-message rounds, which a plain
// back-and-forth of short turns produces, are coalesced and summarized as
// one block so the strategy still makes progress on them. Batches are
// summarized concurrently; a failed batch keeps its original messages.
func (m *AutoContextMemory) summarizeRounds(ctx context.Context) bool {
	if m.summarizer == nil {
		return false
	}
	boundary := lastUserIndex(m.working)
	if boundary <= 0 {
		return false
	}

	prelude, rounds := splitRounds(m.working[:boundary])
	batches := batchRounds(rounds)
	if len(batches) == 0 {
		return false
	}

	summaries := make([]types.Message, len(batches))
	done := make([]bool, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		if len(batch) < 2 {
			continue
		}
		i, batch := i, batch
		g.Go(func() error {
			summary, err := m.summarizer.Summarize(gctx, batch)
			if err != nil {
				m.collector.RecordSummarizerFailure()
				m.logger.Warn("round summarization failed, keeping messages",
					zap.Int("batch", i), zap.Error(err))
				return nil
			}
			text := "[Round summary]\n" + summary.Text()
			if refs := offloadRefs(batch); len(refs) > 0 {
				text += "\n[Offloaded references: " + strings.Join(refs, ", ") + "]"
			}
			summaries[i] = types.NewUserMessage(text)
			done[i] = true
			return nil
		})
	}
	// Workers only report failures through logs, so Wait cannot error.
	_ = g.Wait()

	progressed := false
	rebuilt := append([]types.Message(nil), prelude...)
	for i, batch := range batches {
		if done[i] {
			rebuilt = append(rebuilt, summaries[i])
			m.collector.RecordSummarized(len(batch))
			progressed = true
			continue
		}
		rebuilt = append(rebuilt, batch...)
	}
	if !progressed {
		return false
	}
	m.working = append(rebuilt, m.working[boundary:]...)
	return true
}

// batchRounds turns rounds into summarization units: complete rounds stand
// alone, consecutive single-message rounds merge into one batch.
func batchRounds(rounds [][]types.Message) [][]types.Message {
	var batches [][]types.Message
	var singles []types.Message
	for _, round := range rounds {
		if len(round) >= 2 {
			if len(singles) > 0 {
				batches = append(batches, singles)
				singles = nil
			}
			batches = append(batches, round)
			continue
		}
		singles = append(singles, round...)
	}
	if len(singles) > 0 {
		batches = append(batches, singles)
	}
	return batches
}

// compressCurrentRound truncates oversized tool results inside the round
// in progress. Tool call blocks are left intact so the call/result
// pairing the provider sees stays consistent.
func (m *AutoContextMemory) compressCurrentRound(_ context.Context) bool {
	start := lastUserIndex(m.working)
	if start < 0 {
		return false
	}

	progressed := false
	for i := start; i < len(m.working); i++ {
		msg := m.working[i]
		if msg.Role != types.RoleTool {
			continue
		}
		if serializedSize(msg) <= m.cfg.LargePayloadBytes {
			continue
		}
		blocks := make([]types.ContentBlock, 0, len(msg.Blocks))
		truncated := false
		for _, b := range msg.Blocks {
			res, ok := b.(types.ToolResultBlock)
			if !ok {
				blocks = append(blocks, b)
				continue
			}
			full := flattenMessage(types.Message{Blocks: res.Output})
			if len(full) <= m.cfg.PreviewChars {
				blocks = append(blocks, b)
				continue
			}
			note := truncateRunes(full, m.cfg.PreviewChars) + "\n[Tool result truncated.]"
			blocks = append(blocks, types.ToolResultBlock{
				ToolID: res.ToolID,
				Name:   res.Name,
				Output: []types.ContentBlock{types.TextBlock{Text: note}},
			})
			truncated = true
		}
		if truncated {
			msg.Blocks = blocks
			m.working[i] = msg
			progressed = true
		}
	}
	return progressed
}

// splitRounds groups messages into user-initiated rounds. Messages before
// the first user message (typically the system prompt) form the prelude
// and are never summarized.
func splitRounds(msgs []types.Message) (prelude []types.Message, rounds [][]types.Message) {
	first := -1
	for i, msg := range msgs {
		if msg.Role == types.RoleUser {
			first = i
			break
		}
	}
	if first < 0 {
		return msgs, nil
	}
	prelude = msgs[:first]
	start := first
	for i := first + 1; i < len(msgs); i++ {
		if msgs[i].Role == types.RoleUser {
			rounds = append(rounds, msgs[start:i])
			start = i
		}
	}
	rounds = append(rounds, msgs[start:])
	return prelude, rounds
}

func offloadRefs(msgs []types.Message) []string {
	var refs []string
	for _, msg := range msgs {
		if id, ok := msg.Metadata[MetadataOffloadID].(string); ok && id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}

func lastUserIndex(msgs []types.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleUser {
			return i
		}
	}
	return -1
}

func lastAssistantIndex(msgs []types.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant {
			return i
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
