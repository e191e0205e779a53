package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is how often the janitor sweeps when no interval is configured.
const DefaultInterval = time.Minute

// RoomSweeper evicts expired rooms and returns their codes.
type RoomSweeper interface {
	Sweep(now time.Time, emptyGrace, inactiveTimeout time.Duration) []string
}

// LimiterSweeper drops stale rate limit entries.
type LimiterSweeper interface {
	Sweep(now time.Time) int
}

// Config controls what counts as expired.
type Config struct {
	Interval        time.Duration
	EmptyGrace      time.Duration
	InactiveTimeout time.Duration
}

// Janitor periodically removes abandoned rooms and stale limiter entries.
type Janitor struct {
	rooms   RoomSweeper
	limiter LimiterSweeper
	cfg     Config
	now     func() time.Time
	log     *zerolog.Logger
}

// New builds a janitor. limiter and logger may be nil.
func New(rooms RoomSweeper, limiter LimiterSweeper, cfg Config, logger *zerolog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Janitor{
		rooms:   rooms,
		limiter: limiter,
		cfg:     cfg,
		now:     time.Now,
		log:     logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	j.log.Debug().Dur("interval", j.cfg.Interval).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Tick()
		}
	}
}

// Tick performs one sweep and returns the codes of the removed rooms.
func (j *Janitor) Tick() []string {
	now := j.now()

	removed := j.rooms.Sweep(now, j.cfg.EmptyGrace, j.cfg.InactiveTimeout)
	for _, code := range removed {
		j.log.Info().Str("room", code).Msg("removed abandoned room")
	}

	entries := 0
	if j.limiter != nil {
		entries = j.limiter.Sweep(now)
	}
	if len(removed) > 0 || entries > 0 {
		j.log.Debug().Int("rooms", len(removed)).Int("limiter_entries", entries).Msg("janitor sweep")
	}
	return removed
}
