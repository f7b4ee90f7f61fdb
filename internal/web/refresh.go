package web

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "timetable/internal/log"
)

// StartRefresher runs job on the standard five-field cron spec until ctx is
// done or the returned stop function is called. Runs never overlap: a tick
// that arrives while the previous job is still running is skipped.
func StartRefresher(ctx context.Context, spec string, job func(context.Context) error) (stop func(), err error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
			return
		}
		appLog.Debug("scheduled refresh done")
	}); err != nil {
		return nil, fmt.Errorf("web: invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("scheduled refresh enabled", "cron", spec)

	var once sync.Once
	stop = func() {
		once.Do(func() {
			<-c.Stop().Done()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}
