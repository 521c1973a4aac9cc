/*
Package types provides the provider-agnostic message model shared across
the agentcore library.

types is the lowest-level package: it depends on nothing inside agentcore
and every other package imports its message, content-block, and error
definitions from here to avoid circular imports.

Core types:

  - Message: one conversation turn (Role, optional Name, ordered ContentBlocks)
  - ContentBlock: closed union of Text, Thinking, Image, Audio, Video, ToolUse, ToolResult
  - Source: media payload location, either URLSource (remote URL or local path) or Base64Source
  - Error / ErrorCode: structured error taxonomy (format, parse, compression, offload)
  - TokenUsage: prompt/completion token counters plus wall-clock latency

Messages are immutable once constructed: compression and formatting never
mutate a Message in place, they build replacements.
*/
package types
