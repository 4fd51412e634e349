package resolution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs ProcessOpenTickets on a cron schedule. Runs never
// overlap; a tick that fires while a sweep is in progress is skipped.
type Sweeper struct {
	resolver *Resolver
	cron     *cron.Cron
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper schedules the resolver with a standard 5-field cron
// expression, e.g. "*/15 * * * *".
func NewSweeper(resolver *Resolver, schedule string, logger zerolog.Logger) (*Sweeper, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	s := &Sweeper{
		resolver: resolver,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}

	s.cron = cron.New()
	s.cron.Schedule(sched, cron.FuncJob(s.sweep))
	return s, nil
}

// Start begins scheduling in its own goroutine.
func (s *Sweeper) Start() {
	s.logger.Info().Msg("Sweeper started")
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Sweeper stopped")
}

func (s *Sweeper) sweep() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous sweep still running; skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now()
	outcomes, err := s.resolver.ProcessOpenTickets(context.Background())
	s.resolver.metrics.ObserveSweep(time.Since(started))
	if err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed")
		return
	}

	resolved := 0
	for _, o := range outcomes {
		if o.Resolved {
			resolved++
		}
	}
	s.logger.Info().Int("processed", len(outcomes)).Int("resolved", resolved).Msg("Sweep complete")
}
