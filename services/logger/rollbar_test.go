package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

func newObservedLogger(t *testing.T) (*RollbarLogger, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zapcore.DebugLevel)
	l := NewRollbarLogger(zap.New(obsCore), newTestConf())
	require.False(t, l.report)
	return l, logs
}

func newTestConf() *core.Config {
	conf := core.NewTestConfig()
	conf.RollbarToken = ""
	return conf
}

func TestRollbarLogger_levels(t *testing.T) {
	l, logs := newObservedLogger(t)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "error", entries[3].Message)
}

func TestRollbarLogger_fields(t *testing.T) {
	l, logs := newObservedLogger(t)
	usr := user.User{ID: "u1", Username: "student"}

	l.Error("boom", errors.New("kaput"), map[string]interface{}{"course_id": "c1"}, usr, user.User{ID: "u2"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "kaput", ctx["error"])
	assert.Equal(t, "c1", ctx["course_id"])
	assert.Equal(t, "u1", ctx["user_id"])
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() { l.Info("ignored", errors.New("x")) })
}
