// Package store persists stations, schedule rules, recordings, capture
// segments, storage delivery status, and podcast records in SQLite.
//
// The Store manages database connections, schema initialization, guarded
// status transitions, and the queries the scheduler uses for firing and
// startup recovery. Every mutation is a single atomic update scoped to one
// recording; nothing here requires a cross-recording transaction.
//
// The schema is not migrated. Structural changes bump the version in
// schema.go and users reset the database to adopt it.
package store
