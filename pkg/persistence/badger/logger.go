package badger

import (
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// zapBadgerLogger routes badger's internal logging through zap.
// Badger is chatty at info level, so info lines are demoted to debug.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*zapBadgerLogger)(nil)

func newZapBadgerLogger(logger *zap.Logger) *zapBadgerLogger {
	return &zapBadgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (l *zapBadgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *zapBadgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *zapBadgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *zapBadgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}
