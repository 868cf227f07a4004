// Package storage persists pool snapshots to Postgres. The snapshot
// writer takes whole cache snapshots from the collection cycle, stamps
// them, and batch-inserts the rows. Persistence is strictly off the hot
// path: a snapshot that cannot be queued is dropped and counted, never
// blocked on.
package storage
