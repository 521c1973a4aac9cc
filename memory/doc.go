/*
Package memory provides conversation memory for agent sessions, including
AutoContextMemory: a self-compressing message log that keeps a growing
conversation within a token budget.

AutoContextMemory holds two parallel logs plus an offload side-store:

  - working:  the compression-eligible list handed to the model
  - original: append-only, uncompressed ground truth for audit and replay
  - offload:  full content behind the previews left in working, keyed by
    opaque reference IDs

When a read finds the working log over its message or token thresholds, an
ordered cascade of strategies runs until the log fits again: summarizing
historical tool runs, offloading large messages (first with a keep-last-N
exemption, then without), summarizing whole historical rounds, and finally
compressing the current round's tool results. Every strategy is lossy in
the working log but never in the original log, and a failing strategy is
skipped rather than surfaced: Get always returns a usable list.

Instances are scoped to one session and expect a single sequential owner;
they are not safe for concurrent mutation.
*/
package memory
