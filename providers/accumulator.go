package providers

import (
	"strings"

	"github.com/orvane/agentcore/types"
)

// ToolCallAccumulator reassembles tool calls that arrive fragmented across
// streamed chunks. Pieces are merged by the stream's tool-call slot index
// (the id and name appear only on the opening piece) and the argument text
// is concatenated in arrival order.
//
// The accumulator is scoped to a single in-flight response: create one per
// stream and do not share it across concurrent streams.
type ToolCallAccumulator struct {
	order []int
	calls map[int]*pendingToolCall
}

type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[int]*pendingToolCall)}
}

// Observe merges one streamed tool-call piece.
func (a *ToolCallAccumulator) Observe(dtc DeltaToolCall) {
	call, ok := a.calls[dtc.Index]
	if !ok {
		call = &pendingToolCall{}
		a.calls[dtc.Index] = call
		a.order = append(a.order, dtc.Index)
	}
	if dtc.ID != "" {
		call.id = dtc.ID
	}
	if dtc.Function.Name != "" {
		call.name = dtc.Function.Name
	}
	call.args.WriteString(dtc.Function.Arguments)
}

// Blocks returns the assembled tool calls in stream order. Calls whose
// accumulated arguments are not valid JSON still yield a block, with an
// empty input map and the raw text retained. A call that never received a
// name stays tagged as a fragment so it cannot be mistaken for a complete
// invocation.
func (a *ToolCallAccumulator) Blocks() []types.ContentBlock {
	out := make([]types.ContentBlock, 0, len(a.order))
	for _, idx := range a.order {
		call := a.calls[idx]
		block := types.ToolUseBlock{ID: call.id, Name: call.name}
		input, raw := ParseToolArguments(call.args.String())
		block.Input = input
		block.RawInput = raw
		if call.name == "" {
			block.Fragment = true
		}
		out = append(out, block)
	}
	return out
}

// Len returns the number of tool calls observed so far.
func (a *ToolCallAccumulator) Len() int {
	return len(a.order)
}

// Reset clears all accumulated state for reuse on a new stream.
func (a *ToolCallAccumulator) Reset() {
	a.order = nil
	a.calls = make(map[int]*pendingToolCall)
}
