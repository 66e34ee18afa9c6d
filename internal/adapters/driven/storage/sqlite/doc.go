// Package sqlite provides the document ledger: SQLite-backed storage
// for document records, their lifecycle status, tags, and index job
// history. Chunk vectors live in a separate vector database; this
// package holds the relational truth the job engine resumes from.
package sqlite
