package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher reloads the dataset on a cron schedule.
type Refresher struct {
	cron    *cron.Cron
	manager *Manager
	spec    string
}

// NewRefresher schedules manager reloads. spec uses the six-field form with seconds.
func NewRefresher(ctx context.Context, manager *Manager, spec string) (*Refresher, error) {
	logger := cronLogger{}
	r := &Refresher{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger))),
		manager: manager,
		spec:    spec,
	}

	if _, err := r.cron.AddFunc(spec, func() {
		if _, err := manager.Reload(ctx); err != nil {
			slog.Warn("[Refresher] Scheduled reload failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs scheduled reloads until ctx is cancelled, then waits for a running reload to finish.
func (r *Refresher) Start(ctx context.Context) error {
	slog.Info("[Refresher] Starting dataset refresher", "schedule", r.spec)
	r.cron.Start()

	<-ctx.Done()
	slog.Info("[Refresher] Stopping (context cancelled)")
	<-r.cron.Stop().Done()
	return nil
}

// cronLogger routes robfig/cron logs through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("[Refresher] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("[Refresher] "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
