package limiter

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor runs Purge on a cron schedule.
type Janitor struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	timeout   time.Duration
	log       *zap.Logger
}

// NewJanitor registers the purge job. schedule uses the standard 5-field
// cron syntax or descriptors such as "@hourly".
func NewJanitor(p Purger, schedule string, retention time.Duration, log *zap.Logger) (*Janitor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	j := &Janitor{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		purger:    p,
		retention: retention,
		timeout:   time.Minute,
		log:       log,
	}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, err
	}
	return j, nil
}

// RunOnce purges stale entries now.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	n, err := j.purger.Purge(ctx, j.retention)
	if err != nil {
		j.log.Warn("limiter purge failed", zap.Error(err))
		return
	}
	j.log.Info("limiter purged", zap.Int64("rows", n))
}

// Start launches the scheduler in its own goroutine.
func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the scheduler; the returned context is done when a running job finishes.
func (j *Janitor) Stop() context.Context { return j.cron.Stop() }
