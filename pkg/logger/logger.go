package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger instance.
// It is a no-op logger until Init runs, so packages can log from tests without setup.
var Log = zap.NewNop()

// Init initializes the global logger
// isDevelopment: true for colorful console output, false for JSON structured logging
func Init(isDevelopment bool) error {
	var config zap.Config

	if isDevelopment {
		// Development: colorful console output with debug level
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		// Production: JSON structured logging with info level
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := config.Build(
		zap.AddCaller(),                   // Add caller information (file:line)
		zap.AddStacktrace(zap.ErrorLevel), // Add stack trace for errors
	)
	if err != nil {
		return err
	}

	Log = l.Named("wastetrack")
	return nil
}

// InitForEnvironment picks development output for anything but "production".
func InitForEnvironment(environment string) error {
	return Init(environment != "production")
}

// Sync flushes any buffered log entries
// Should be called before application exits
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
