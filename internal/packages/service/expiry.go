package service

import (
	"context"
	"fmt"
	"time"

	"classbook/internal/packages/repository"
	"classbook/pkg/clock"
	"classbook/pkg/logger"

	"github.com/robfig/cron/v3"
)

// expiryRunTimeout bounds a single pass; the job runs once a day.
const expiryRunTimeout = 4 * time.Minute

// ExpiryJob marks lapsed ledger entries EXPIRED. Credits are left in place so
// a waitlist refund that lands after expiry still has an entry to credit.
type ExpiryJob struct {
	repo  repository.UserPackageRepository
	clock clock.Clock
	spec  string
	log   *logger.Logger
}

func NewExpiryJob(repo repository.UserPackageRepository, clk clock.Clock, spec string, log *logger.Logger) *ExpiryJob {
	return &ExpiryJob{
		repo:  repo,
		clock: clk,
		spec:  spec,
		log:   log.Component("package-expiry"),
	}
}

// RunOnce expires every ACTIVE entry whose expiry date has passed. Running it
// twice is harmless: the second pass finds nothing to change.
func (j *ExpiryJob) RunOnce(ctx context.Context) (int64, error) {
	now := j.clock.Now()
	n, err := j.repo.ExpireBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire packages before %s: %w", now.Format(time.RFC3339), err)
	}
	j.log.Info("Package expiry pass finished", "expired", n, "cutoff", now)
	return n, nil
}

func (j *ExpiryJob) Name() string {
	return "package-expiry"
}

// Run schedules RunOnce on the cron spec and blocks until ctx is cancelled.
// A pass still running when the next tick fires is not doubled up.
func (j *ExpiryJob) Run(ctx context.Context) error {
	cronLog := cron.PrintfLogger(j.log)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := c.AddFunc(j.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, expiryRunTimeout)
		defer cancel()
		if _, err := j.RunOnce(runCtx); err != nil {
			j.log.Error("Package expiry pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule package expiry %q: %w", j.spec, err)
	}

	j.log.Info("Package expiry scheduled", "spec", j.spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
