package interview

import (
	"context"
	"log/slog"
	"time"

	"github.com/prepwise/prepwise/internal/store"
)

// StartRetentionWorker periodically deletes unfinalized interviews older than
// maxAge. Such records are left behind when the process dies between creating
// and finalizing one.
func StartRetentionWorker(ctx context.Context, repo store.Repository, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				sweepStaleInterviews(ctx, repo, maxAge)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepStaleInterviews(ctx context.Context, repo store.Repository, maxAge time.Duration) {
	deleted, err := repo.DeleteStaleUnfinalized(ctx, maxAge)
	if err != nil {
		slog.Error("Retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention sweep removed stale interviews", "count", deleted)
	}
}
