package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const maintenanceTimeout = time.Minute

// Scheduler runs periodic housekeeping: pruning the activity log and logging
// a platform snapshot.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	retention time.Duration
	eventSvc  services.EventServiceProvider
	statsSvc  services.StatsServiceProvider
	now       func() time.Time
}

// NewScheduler creates a scheduler running maintenance on the cron spec.
func NewScheduler(spec string, retention time.Duration, eventSvc services.EventServiceProvider, statsSvc services.StatsServiceProvider) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		retention: retention,
		eventSvc:  eventSvc,
		statsSvc:  statsSvc,
		now:       time.Now,
	}, nil
}

// Start registers the maintenance job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
		defer cancel()
		s.RunMaintenance(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	log.Info().Str("schedule", s.spec).Dur("retention", s.retention).Msg("Starting background scheduler...")
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

// RunMaintenance prunes old events and logs current platform statistics.
func (s *Scheduler) RunMaintenance(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	removed, err := s.eventSvc.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to prune events")
	} else if removed > 0 {
		log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned old events")
		s.record(ctx, models.Event{
			Type:    "system.maintenance",
			Level:   "info",
			Message: fmt.Sprintf("Pruned %d events older than %s.", removed, cutoff.Format(time.RFC3339)),
		})
	}

	stats, err := s.statsSvc.PlatformStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to compute platform statistics")
		return
	}
	log.Info().
		Int("users", stats.Users.Total).
		Int("active_pitches", stats.Pitches.Active).
		Int("funded_pitches", stats.Pitches.Funded).
		Str("total_raised", stats.Funding.TotalRaised.String()).
		Float64("success_rate", stats.Pitches.SuccessRate).
		Msg("Platform snapshot")
}

func (s *Scheduler) record(ctx context.Context, event models.Event) {
	if err := s.eventSvc.CreateEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Scheduler: Failed to record event")
	}
}
