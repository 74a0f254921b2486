package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/speech"
	"github.com/mohammad-safakhou/parley/internal/store"
)

// Scheduler runs background maintenance on a cron cadence: pruning the
// audio file cache and abandoning interview sessions nobody came back
// to. Redis locks keep replicas from doing the same work twice; both
// jobs are idempotent so a lost lock only costs duplicate effort.
type Scheduler struct {
	Cfg    config.SchedulerConfig
	Store  *store.Store
	Speech *speech.Synthesizer // nil when speech is disabled
	Rdb    *redis.Client       // nil means no cross-replica locking
	Stop   chan struct{}

	logger         *log.Logger
	lastAudioPrune *time.Time
	lastStaleSweep *time.Time
}

// Start launches the maintenance loop. Stop it by closing Stop.
func (s *Scheduler) Start() {
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	ctx := context.Background()

	if s.Speech != nil && isDue(s.Cfg.AudioPruneCron, s.lastAudioPrune, now) {
		if s.acquire(ctx, "audio_prune") {
			if _, err := s.Speech.Prune(); err != nil {
				s.logger.Printf("audio prune failed: %v", err)
			}
			t := now
			s.lastAudioPrune = &t
		}
	}

	if s.Store != nil && isDue(s.Cfg.StaleSweepCron, s.lastStaleSweep, now) {
		if s.acquire(ctx, "stale_sweep") {
			n, err := s.Store.AbandonStaleSessions(ctx, s.Cfg.StaleAfter)
			if err != nil {
				s.logger.Printf("stale sweep failed: %v", err)
			} else if n > 0 {
				s.logger.Printf("abandoned %d stale session(s)", n)
			}
			t := now
			s.lastStaleSweep = &t
		}
	}
}

// acquire takes the distributed lock for one job. Without redis every
// instance runs the job locally.
func (s *Scheduler) acquire(ctx context.Context, job string) bool {
	if s.Rdb == nil {
		return true
	}
	ok, err := s.Rdb.SetNX(ctx, "parley:sched:lock:"+job, "1", s.Cfg.LockTTL).Result()
	if err != nil {
		s.logger.Printf("lock %s failed: %v (skipping)", job, err)
		return false
	}
	return ok
}

// isDue determines whether a job with cronSpec should run now given its
// last run time. Supports "@daily", "@hourly" and standard 5-field cron
// expressions; an unparseable spec falls back to @daily.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
