package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// RollbarLogger writes to zap and reports to Rollbar when enabled.
type RollbarLogger struct {
	zl     *zap.SugaredLogger
	report bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zl: zl.Sugar(), report: conf.RollbarToken != ""}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
	l.report = enabled
}

// prepare splits args into Rollbar's interfaces and zap key/value pairs.
// expected fmt: error, map[string]interface{}, user.User
func (l *RollbarLogger) prepare(msg string, args []interface{}) (rbArgs, kvs []interface{}) {
	var usrSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				if l.report {
					rollbar.SetPerson(v.ID, v.Username, v.Email)
				}
				kvs = append(kvs, "user_id", v.ID)
				usrSet = true
			}
			continue
		case error:
			kvs = append(kvs, "error", v)
		case map[string]interface{}:
			for key, val := range v {
				kvs = append(kvs, key, val)
			}
		default:
			kvs = append(kvs, "extra", v)
		}
		rbArgs = append(rbArgs, arg)
	}
	if !usrSet && l.report {
		rollbar.ClearPerson()
	}
	return rbArgs, kvs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Debug(rbArgs...)
	}
	l.zl.Debugw(msg, kvs...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Info(rbArgs...)
	}
	l.zl.Infow(msg, kvs...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Warning(rbArgs...)
	}
	l.zl.Warnw(msg, kvs...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Error(rbArgs...)
	}
	l.zl.Errorw(msg, kvs...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	l.zl.Fatalw(msg, kvs...)
}

// Sync flushes buffered log entries.
func (l *RollbarLogger) Sync() {
	_ = l.zl.Sync()
	if l.report {
		rollbar.Wait()
	}
}
