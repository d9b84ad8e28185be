package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/elimu/core"
	logsvc "github.com/trezcool/elimu/services/logger"
)

type jobStub struct {
	n    int
	err  error
	seen []time.Time
}

func (j *jobStub) ExpireStale(_ context.Context, now time.Time) (int, error) {
	j.seen = append(j.seen, now)
	return j.n, j.err
}

func (j *jobStub) SendReminders(_ context.Context, now time.Time) (int, error) {
	j.seen = append(j.seen, now)
	return j.n, j.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		couponSpec string
		remindSpec string
		wantErr    string
	}{
		{name: "valid", couponSpec: "@hourly", remindSpec: "*/5 * * * *"},
		{name: "bad coupon spec", couponSpec: "nope", remindSpec: "@hourly", wantErr: "coupon expiry spec"},
		{name: "bad reminder spec", couponSpec: "@hourly", remindSpec: "61 * * * *", wantErr: "live class reminder spec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := core.NewTestConfig()
			conf.Scheduler.CouponExpirySpec = tt.couponSpec
			conf.Scheduler.LiveClassReminderSpec = tt.remindSpec

			s, err := New(conf, &jobStub{}, &jobStub{}, logsvc.NewNopLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, s.Entries())

			s.Start()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			s.Stop(ctx)
		})
	}
}

func TestScheduler_jobs(t *testing.T) {
	now := time.Date(2021, 3, 10, 9, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	NowFunc = func() time.Time { return now }
	t.Cleanup(func() { NowFunc = time.Now })

	conf := core.NewTestConfig()
	conf.Scheduler.CouponExpirySpec = "@hourly"
	conf.Scheduler.LiveClassReminderSpec = "@every 5m"

	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := logsvc.NewRollbarLogger(zap.New(obsCore), conf)

	coupons := &jobStub{n: 2}
	classes := &jobStub{err: errors.New("provider down")}
	s, err := New(conf, coupons, classes, logger)
	require.NoError(t, err)

	s.run("expire coupons", s.ExpireCoupons)
	s.run("live class reminders", s.SendReminders)

	require.Len(t, coupons.seen, 1)
	assert.Equal(t, time.UTC, coupons.seen[0].Location())
	assert.True(t, now.Equal(coupons.seen[0]))
	require.Len(t, classes.seen, 1)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "scheduler: expire coupons: 2 processed", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "provider down")
}
