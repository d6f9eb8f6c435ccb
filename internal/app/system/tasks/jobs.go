package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/livedoc"
	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
)

// BundleBackupJob writes every owner's full bundle to dir as one JSON file
// per owner per day. Existing files for the same day are overwritten, so a
// day's backup always reflects the last run.
func BundleBackupJob(store *localstate.Store, dir, schedule string, logger *zap.Logger) Job {
	return Job{
		Name:     "bundle-backup",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create backup dir: %w", err)
			}
			owners, err := store.Owners()
			if err != nil {
				return fmt.Errorf("list owners: %w", err)
			}

			day := time.Now().Format("2006-01-02")
			var written int
			for _, owner := range owners {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				b := store.LoadBundle(owner)
				if b.IsEmpty() {
					continue
				}
				data, err := json.MarshalIndent(b, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal bundle for %s: %w", owner, err)
				}
				name := filepath.Join(dir, fmt.Sprintf("%s-%s.json", owner, day))
				if err := os.WriteFile(name, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				written++
			}
			if written > 0 {
				logger.Info("bundle backup written",
					zap.Int("owners", written), zap.String("dir", dir))
			}
			return nil
		},
	}
}

// LiveDocBackupJob snapshots the shared live document to dir, so the remote
// state has a restore point independent of any admin's local store.
func LiveDocBackupJob(live *livedoc.Store, dir, schedule string, logger *zap.Logger) Job {
	return Job{
		Name:     "livedoc-backup",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			doc, err := live.Get(ctx)
			if err != nil {
				return fmt.Errorf("fetch live document: %w", err)
			}
			if doc == nil {
				return nil
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create backup dir: %w", err)
			}
			data, err := json.MarshalIndent(doc.Bundle(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal live document: %w", err)
			}
			day := time.Now().Format("2006-01-02")
			name := filepath.Join(dir, fmt.Sprintf("live-%s-%s.json", live.DocID(), day))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			logger.Info("live document backup written", zap.String("file", name))
			return nil
		},
	}
}

// BackupPruneJob deletes backup files older than keep days.
func BackupPruneJob(dir string, keep int, schedule string, logger *zap.Logger) Job {
	return Job{
		Name:     "backup-prune",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			entries, err := os.ReadDir(dir)
			if os.IsNotExist(err) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read backup dir: %w", err)
			}
			cutoff := time.Now().AddDate(0, 0, -keep)
			var removed int
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				if info.ModTime().Before(cutoff) {
					if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
						removed++
					}
				}
			}
			if removed > 0 {
				logger.Info("pruned old backups",
					zap.Int("removed", removed), zap.Int("keep_days", keep))
			}
			return nil
		},
	}
}
