// Package journal persists stream status transitions.
//
// A Journal is a connection.Recorder. Status events are copied into a
// bounded channel, accumulated into batches by a consumer goroutine and
// written to a Sink when the batch fills or the flush interval elapses.
// Data frames are not journaled.
//
// Two sinks are provided:
//   - PostgresSink writes through a pgx pool with pgx.Batch
//   - SQLiteSink writes through gorm on a local SQLite file
package journal
