package logsvc

import (
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
)

// NewZapLogger builds a development logger in debug mode, a production one otherwise.
func NewZapLogger(conf *core.Config) (*zap.Logger, error) {
	var cfg zap.Config
	if conf.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	return cfg.Build(zap.Fields(zap.String("app", conf.AppName), zap.String("env", conf.Env)))
}

// NewNopLogger discards everything.
func NewNopLogger() *RollbarLogger {
	return &RollbarLogger{zl: zap.NewNop().Sugar()}
}
