package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper periodically deletes expired session records from a [Store].
// Stores with native TTLs report zero deletions and the sweep is harmless;
// the Postgres store relies on it for cleanup.
type Sweeper struct {
	store Store
	log   zerolog.Logger
	cron  *cron.Cron
	spec  string
}

// NewSweeper creates a sweeper running on the given cron spec
// ("@hourly" when empty).
func NewSweeper(store Store, log zerolog.Logger, spec string) *Sweeper {
	if spec == "" {
		spec = "@hourly"
	}
	return &Sweeper{
		store: store,
		log:   log.With().Str("component", "session-sweeper").Logger(),
		cron:  cron.New(),
		spec:  spec,
	}
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("session sweeper started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("session sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UnixMilli()
	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
		return
	}
	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("expired session records removed")
	}
}
