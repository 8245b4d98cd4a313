package backlog

import (
	"context"
	"log/slog"

	"github.com/indexsync/indexsync/internal/plugin"
	"github.com/robfig/cron/v3"
)

// Scheduler drains every plugin's backlog on a cron schedule. Each run is
// independent; a suspended run leaves the queue for the next tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers one cron job per plugin with the given cron spec
// (e.g. "@every 5m").
func NewScheduler(runner *Runner, plugins *plugin.Registry, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()
	for _, p := range plugins.All() {
		pluginID := p.ID()
		_, err := c.AddFunc(spec, func() {
			res, err := runner.Run(context.Background(), pluginID)
			if err != nil {
				logger.Error("scheduled backlog run failed", "plugin", pluginID, "error", err)
				return
			}
			if res.Suspended {
				return
			}
			if res.Processed > 0 || res.Failed > 0 {
				logger.Info("backlog run finished", "plugin", pluginID,
					"processed", res.Processed, "failed", res.Failed, "remaining", res.Remaining)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
