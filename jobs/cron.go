package jobs

import (
	"context"
	"fmt"
	"time"

	"civicreport-be/services"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type clearer interface {
	ClearResolved(ctx context.Context) (services.ClearResult, error)
}

// ArchiveCron periodically archives resolved issues.
type ArchiveCron struct {
	log     zerolog.Logger
	svc     clearer
	c       *cron.Cron
	timeout time.Duration
}

// NewArchiveCron schedules svc.ClearResolved on schedule, a five-field cron
// expression or a descriptor such as "@daily".
func NewArchiveCron(schedule string, svc clearer, log zerolog.Logger) (*ArchiveCron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	ac := &ArchiveCron{
		log:     log.With().Str("component", "archive-cron").Logger(),
		svc:     svc,
		c:       c,
		timeout: time.Minute,
	}
	if _, err := c.AddFunc(schedule, ac.run); err != nil {
		return nil, fmt.Errorf("invalid archive cron %q: %w", schedule, err)
	}
	return ac, nil
}

// Start begins running the schedule in its own goroutine.
func (ac *ArchiveCron) Start() { ac.c.Start() }

// Stop stops scheduling and waits for a running job to finish.
func (ac *ArchiveCron) Stop() {
	<-ac.c.Stop().Done()
}

func (ac *ArchiveCron) run() {
	ctx, cancel := context.WithTimeout(context.Background(), ac.timeout)
	defer cancel()

	res, err := ac.svc.ClearResolved(ctx)
	if err != nil {
		ac.log.Error().Err(err).Msg("cron: clear resolved failed")
		return
	}
	ac.log.Info().Int("removed", res.Removed).Int("remaining", res.Remaining).Msg("cron: clear resolved")
}
