package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	instance *zap.SugaredLogger
	once     sync.Once
)

// L returns the process-wide logger. The first call builds it; a
// development config is used unless GIN_MODE=release.
func L() *zap.SugaredLogger {
	once.Do(func() {
		var l *zap.Logger
		var err error
		if os.Getenv("GIN_MODE") == "release" {
			l, err = zap.NewProduction()
		} else {
			l, err = zap.NewDevelopment()
		}
		if err != nil {
			l = zap.NewNop()
		}
		instance = l.Sugar()
	})
	return instance
}
