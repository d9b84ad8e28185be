// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/elimu/core"
)

var NowFunc = time.Now // mockable

type (
	CouponExpirer interface {
		ExpireStale(ctx context.Context, now time.Time) (int, error)
	}

	Reminder interface {
		SendReminders(ctx context.Context, now time.Time) (int, error)
	}

	Scheduler struct {
		cron    *cron.Cron
		coupons CouponExpirer
		classes Reminder
		logger  core.Logger
		timeout time.Duration
	}
)

// New registers the coupon expiry and live-class reminder jobs with the configured specs.
func New(conf *core.Config, coupons CouponExpirer, classes Reminder, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		coupons: coupons,
		classes: classes,
		logger:  logger,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(conf.Scheduler.CouponExpirySpec, func() { s.run("expire coupons", s.ExpireCoupons) }); err != nil {
		return nil, errors.Wrapf(err, "coupon expiry spec %q", conf.Scheduler.CouponExpirySpec)
	}
	if _, err := s.cron.AddFunc(conf.Scheduler.LiveClassReminderSpec, func() { s.run("live class reminders", s.SendReminders) }); err != nil {
		return nil, errors.Wrapf(err, "live class reminder spec %q", conf.Scheduler.LiveClassReminderSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) ExpireCoupons(ctx context.Context) (int, error) {
	return s.coupons.ExpireStale(ctx, NowFunc().UTC())
}

func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	return s.classes.SendReminders(ctx, NowFunc().UTC())
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("scheduler: %s: %v", name, err), err)
		return
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("scheduler: %s: %d processed", name, n))
	}
}
