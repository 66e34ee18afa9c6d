package driving

import "context"

// ScanResult summarises one filesystem scan.
type ScanResult struct {
	NewFiles     int `json:"new_files"`
	UpdatedFiles int `json:"updated_files"`
	TotalFiles   int `json:"total_files"`
}

// ScanService enumerates the configured directory and keeps the
// document ledger in sync with it. It never deletes ledger records
// for files that disappeared; that stays a user decision.
type ScanService interface {
	// Scan walks the scan directory once and upserts ledger records.
	Scan(ctx context.Context) (*ScanResult, error)

	// Watch re-scans whenever the filesystem changes, until the
	// context is cancelled.
	Watch(ctx context.Context) error
}
