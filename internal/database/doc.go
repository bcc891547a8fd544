// Package database provides the SurrealDB access layer for the City Quest API.
//
// The Database interface abstracts the connection so repositories and tests
// never depend on the driver directly:
//   - Query: one {status, result} entry per statement
//   - QueryOne: the first record of the first statement, or ErrNotFound
//   - Execute: mutations where the result is not needed
//
// Connect applies Schema, which defines the tables and the unique index on
// user.telegram_id.
//
// # Error Handling
//
//   - ErrNotFound: record does not exist
//   - ErrDuplicate: unique index violation
//   - ErrConnection: database unreachable
//   - ErrQuery: any other statement failure
//
// # Atomic Writes
//
// AtomicBatch sends several statements in one BEGIN/COMMIT block. It is used
// where a participation and its user must change together.
package database
