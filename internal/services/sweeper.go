package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/storage"
)

// DefaultSweepGrace is how old an unreferenced upload must be before removal
const DefaultSweepGrace = 24 * time.Hour

// UploadSweeper removes uploads that no attachment row references. Such files
// are left behind when the process dies between writing a file and committing
// the message that owns it.
type UploadSweeper struct {
	store   repository.Store
	storage storage.FileStorage
	grace   time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewUploadSweeper creates a new UploadSweeper
func NewUploadSweeper(store repository.Store, fs storage.FileStorage, grace time.Duration, logger *slog.Logger) *UploadSweeper {
	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadSweeper{store: store, storage: fs, grace: grace, logger: logger, now: time.Now}
}

// Sweep deletes orphaned uploads older than the grace period and returns how
// many were removed
func (s *UploadSweeper) Sweep(ctx context.Context) (int, error) {
	files, err := s.storage.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, f := range files {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		referenced, err := s.store.Attachments().StoredNameExists(ctx, f.Name)
		if err != nil {
			return removed, err
		}
		if referenced {
			continue
		}
		if err := s.storage.Delete(f.Name); err != nil {
			s.logger.Warn("failed to remove orphaned upload",
				slog.String("stored_name", f.Name),
				slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("orphaned uploads removed", slog.Int("count", removed))
	}
	return removed, nil
}

// Schedule registers the sweep on c under a standard cron spec or descriptor
// such as "@daily"
func (s *UploadSweeper) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("upload sweep failed", slog.Any("error", err))
		}
	})
}
