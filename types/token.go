package types

import "time"

// TokenUsage represents token consumption reported by a provider for one
// completion, plus the observed wall-clock latency. Absent counters stay
// zero; a parsed response always carries a usable TokenUsage value.
type TokenUsage struct {
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	TotalTokens      int           `json:"total_tokens,omitempty"`
	Latency          time.Duration `json:"latency,omitempty"`
}

// Add accumulates another TokenUsage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.Latency += other.Latency
}
