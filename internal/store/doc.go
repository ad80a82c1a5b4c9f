// Package store provides SQLite-backed storage for crossbind builds.
//
// The store holds two things:
//   - the catalog: one row per build (content addressed by model hash), its
//     callables with rendered decision trees and tree hashes, and every
//     overload with its minimal, script and expanded signatures
//   - the ownership journal: tracker events per session, in seq order
//
// # Determinism
//
//   - All ordering uses logical columns (position, seq), never timestamps
//   - All queries order explicitly: ORDER BY position ASC or seq ASC
//   - Catalog writes use ON CONFLICT DO NOTHING, so writing the same build
//     twice is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
