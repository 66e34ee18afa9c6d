// Package domain contains the core business types: the document ledger
// records, chunks, index jobs, and search result shapes. It has no
// dependencies on infrastructure.
package domain
