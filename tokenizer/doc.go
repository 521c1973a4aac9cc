// Package tokenizer provides token counting for context budgeting: a
// model-aware registry, an exact tiktoken-based counter for OpenAI-family
// models, and a character-ratio estimator as the universal fallback. Counts
// from the estimator are deliberately approximate; callers apply a safety
// ratio on top rather than trusting them exactly.
package tokenizer
