/*
Package providers defines the provider-facing message codec layer: the
ChatFormatter interface, the OpenAI-compatible wire structs shared by the
concrete formatters, and the block-to-wire rendering rules that are common
to every provider (thinking exclusion, text-run joining, multimodal
tool-result degradation, media source encoding, streaming tool-call
fragment accumulation).

Concrete formatters live in subpackages (openai, dashscope) and differ only
in their declared capabilities and in how they render structured content
parts. Formatters are pure per call: no shared mutable state, safe for
concurrent use. The one exception is ToolCallAccumulator, which is scoped
to a single in-flight streamed response and must not be shared across
streams.
*/
package providers
