package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"vidshare_backend/internal/repository"
)

// counters older than this many days are no longer read by the quota check
const counterRetentionDays = 2

type DayKeyer interface {
	DayKey(t time.Time) string
}

// InitDownloadCleanupCron prunes old quota counters and lapsed download
// records shortly after midnight.
func InitDownloadCleanupCron(downloads *repository.DownloadRepository, days DayKeyer) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("15 0 * * *", func() {
		cleanupDownloads(context.Background(), downloads, days, time.Now())
	})
	if err != nil {
		log.Printf("Could not initialize download cleanup cron: %v", err)
	}

	c.Start()
	return c
}

func cleanupDownloads(ctx context.Context, downloads *repository.DownloadRepository, days DayKeyer, now time.Time) {
	cutoff := days.DayKey(now.AddDate(0, 0, -counterRetentionDays))
	if n, err := downloads.PruneCounters(ctx, cutoff); err != nil {
		log.Printf("Error pruning download counters: %v", err)
	} else if n > 0 {
		log.Printf("Pruned %d download counters before %s", n, cutoff)
	}

	if n, err := downloads.DeleteExpired(ctx, now); err != nil {
		log.Printf("Error deleting expired downloads: %v", err)
	} else if n > 0 {
		log.Printf("Deleted %d expired download records", n)
	}
}
