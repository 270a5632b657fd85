// Package store provides SQLite-backed durable storage for execution logs.
//
// Every run the CLI performs with --db is appended as:
//   - Runs: one row per Execute or Chain call, holding the input, the final
//     fact and the final result as canonical JSON plus their digests
//   - Firings: one row per rule that fired, in firing order
//
// # Critical Patterns
//
// Logical Ordering:
//   - Runs and firings are ordered by seq INTEGER, never by wall time
//   - Run seq is assigned by the store inside the writing transaction
//
// Deterministic Query Results:
//   - All queries include ORDER BY seq ASC plus a binary tie-break
//
// Content Digests:
//   - Stored values are canonical JSON (fact.MarshalCanonical) and their
//     digests come from fact.Digest, so equal values always compare equal
//     in SQL
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
