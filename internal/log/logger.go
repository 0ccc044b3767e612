package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger installs the global zap logger and returns a flush function.
// Debug mode logs colored console lines at debug level; otherwise JSON at
// info level for log collectors.
func InitLogger(debug bool) (func(), error) {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		config.DisableStacktrace = true
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.Sampling = nil
	}

	l, err := config.Build()
	if err != nil {
		return func() {}, err
	}

	restoreGlobals := zap.ReplaceGlobals(l)
	restoreStdLog := zap.RedirectStdLog(l)
	return func() {
		_ = l.Sync()
		restoreStdLog()
		restoreGlobals()
	}, nil
}

// Silence installs a no-op logger, used by commands whose output is the
// terminal itself
func Silence() {
	zap.ReplaceGlobals(zap.NewNop())
}
