package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jack/golang-slug-link-service/internal/repository"
)

// DailyPruneScheduler periodically removes daily-bucket keys whose date has
// fallen out of the analytics window, and trims the click archive to match.
// Daily buckets otherwise accumulate forever: nothing on the request path
// ever deletes a bucket for a still-existing code.
type DailyPruneScheduler struct {
	redisRepo     *repository.RedisRepository
	archive       *repository.PostgresRepository // nil when the archive is disabled
	interval      time.Duration
	retentionDays int
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewDailyPruneScheduler(
	redisRepo *repository.RedisRepository,
	archive *repository.PostgresRepository,
	interval time.Duration,
	retentionDays int,
) *DailyPruneScheduler {
	return &DailyPruneScheduler{
		redisRepo:     redisRepo,
		archive:       archive,
		interval:      interval,
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *DailyPruneScheduler) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("Daily prune scheduler started (interval: %v, retention: %d days)", s.interval, s.retentionDays)
}

// Stop gracefully stops the scheduler
func (s *DailyPruneScheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	log.Println("Daily prune scheduler stopped")
}

func (s *DailyPruneScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes every daily bucket dated before the retention cutoff. The
// YYYYMMDD date format orders lexicographically, so a string compare against
// the cutoff date is enough.
func (s *DailyPruneScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoffTime := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	cutoff := cutoffTime.Format("20060102")

	keys, err := s.redisRepo.ListDayKeys(ctx)
	if err != nil {
		log.Printf("Failed to list daily bucket keys: %v", err)
		return
	}

	var pruned, failed int
	for _, key := range keys {
		date := repository.DayKeyDate(key)
		if date == "" || date >= cutoff {
			continue
		}
		if err := s.redisRepo.DeleteDayKey(ctx, key); err != nil {
			log.Printf("Failed to prune daily bucket %s: %v", key, err)
			failed++
			continue
		}
		pruned++
	}

	if pruned > 0 || failed > 0 {
		log.Printf("Daily bucket sweep completed: %d pruned, %d failed", pruned, failed)
	}

	if s.archive != nil {
		rows, err := s.archive.DeleteClicksBefore(ctx, cutoffTime)
		if err != nil {
			log.Printf("Failed to trim click archive: %v", err)
		} else if rows > 0 {
			log.Printf("Click archive trimmed: %d rows", rows)
		}
	}
}

// SweepNow triggers an immediate sweep.
func (s *DailyPruneScheduler) SweepNow() {
	s.sweep()
}
