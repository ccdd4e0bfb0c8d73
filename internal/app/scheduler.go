package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// StartCleanupScheduler launches the periodic retention pass on the
// configured cron schedule.
func (a *App) StartCleanupScheduler() error {
	schedule := a.Config.Analysis.CleanupSchedule
	if schedule == "" {
		a.Logger.Info().Msg("Cleanup scheduler disabled (no schedule configured)")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		result, err := a.AnalysisService.Cleanup(context.Background(), 0)
		if err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled cleanup failed")
			return
		}
		a.Logger.Info().Int("deleted", result.Deleted).Msg("Scheduled cleanup finished")
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c.Start()
	a.cleanupStop = func() { c.Stop() }

	a.Logger.Info().Str("schedule", schedule).Msg("Cleanup scheduler started")
	return nil
}
