package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// Ensure Scanner implements the interface.
var _ driving.ScanService = (*Scanner)(nil)

// watchDebounce coalesces bursts of filesystem events into one
// re-scan. Editors routinely emit several writes per save.
const watchDebounce = 500 * time.Millisecond

// Scanner keeps the document ledger in sync with the scan directory.
// It only ever creates records or refreshes their size and location
// metadata; records for files that disappeared are left for the user
// to delete.
type Scanner struct {
	docStore driven.DocumentStore
	settings domain.Settings
}

// NewScanner creates the filesystem scanner.
func NewScanner(docStore driven.DocumentStore, settings domain.Settings) *Scanner {
	settings.Normalise()
	return &Scanner{docStore: docStore, settings: settings}
}

// Scan walks the scan directory once and upserts ledger records for
// every supported file.
func (s *Scanner) Scan(ctx context.Context) (*driving.ScanResult, error) {
	root, err := filepath.Abs(s.settings.ScanDir)
	if err != nil {
		return nil, fmt.Errorf("resolve scan dir: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan dir %s: %w", root, err)
	}

	logger.Debug("Scanning %s (recursive=%t)", root, s.settings.Recursive)
	result := &driving.ScanResult{}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && !s.settings.Recursive {
				return fs.SkipDir
			}
			return nil
		}

		fileType := domain.FileTypeFromPath(path)
		if fileType == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		created, err := s.upsert(ctx, root, path, fileType, info.Size())
		if err != nil {
			return err
		}

		result.TotalFiles++
		if created {
			result.NewFiles++
		} else {
			result.UpdatedFiles++
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan: %w", walkErr)
	}

	logger.Info("Scan complete: %d files (%d new, %d updated)",
		result.TotalFiles, result.NewFiles, result.UpdatedFiles)
	return result, nil
}

// Watch re-scans whenever the scan directory changes, until the
// context is cancelled.
func (s *Scanner) Watch(ctx context.Context) error {
	root, err := filepath.Abs(s.settings.ScanDir)
	if err != nil {
		return fmt.Errorf("resolve scan dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.addWatchDirs(watcher, root); err != nil {
		return err
	}

	// Catch anything that changed before the watcher was in place.
	if _, err := s.Scan(ctx); err != nil {
		return err
	}

	logger.Info("Watching %s for changes", root)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// New directories need their own watch before files
			// inside them generate events.
			if event.Op.Has(fsnotify.Create) && s.settings.Recursive {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addWatchDirs(watcher, event.Name); err != nil {
						logger.Warn("Watch %s: %v", event.Name, err)
					}
				}
			}

			logger.Debug("Filesystem event: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			if _, err := s.Scan(ctx); err != nil {
				logger.Warn("Re-scan failed: %v", err)
			}
		}
	}
}

// upsert writes one ledger record. The store preserves lifecycle
// status for existing paths, so a re-scan never un-indexes a file.
func (s *Scanner) upsert(ctx context.Context, root, path string, fileType domain.FileType, size int64) (created bool, err error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, err
	}
	folder := filepath.Dir(rel)
	if folder == "." {
		folder = ""
	}

	existing, err := s.docStore.GetByPath(ctx, path)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	created = existing == nil

	doc := &domain.Document{
		ID:        domain.NewDocumentID(path),
		Filename:  filepath.Base(path),
		Filepath:  path,
		Folder:    folder,
		Type:      fileType,
		SizeBytes: size,
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}
	if existing != nil {
		doc.CreatedAt = existing.CreatedAt
		doc.Metadata = existing.Metadata
	}

	if err := s.docStore.Save(ctx, doc); err != nil {
		return false, fmt.Errorf("save %s: %w", path, err)
	}
	return created, nil
}

// addWatchDirs registers root and, when recursive, every directory
// beneath it.
func (s *Scanner) addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	if !s.settings.Recursive {
		return watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
