// Package queue persists offline command entries in SQLite and exposes the
// storage operations the sync service drives their lifecycle through.
//
// The Store manages the database connection, schema initialization, indexed
// queries by target and status, stats aggregation, and bulk clearing. Entries
// capture an opaque command payload plus retry bookkeeping; the store never
// interprets payloads beyond an optional sensor discriminator peek used by
// convenience queries. Every database failure surfaces as a *StorageError so
// callers can separate storage trouble from delivery failures.
//
// The database is a durable outbox, not an archive: synced entries stay for
// inspection until an explicit clear. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
package queue
