// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger. If logFile is non-empty, log
// output also goes to a size-rotated file at that path.
func Init(debug bool, logFile string) error {
	var zapLogger *zap.Logger
	var err error

	if logFile != "" {
		zapLogger, err = newRotatingLogger(debug, logFile)
	} else if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

// newRotatingLogger builds a logger that tees to stderr and a rotating file.
func newRotatingLogger(debug bool, logFile string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileSink, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level),
	)

	return zap.New(core, zap.AddCallerSkip(1)), nil
}

// GetZapLogger returns the base zap logger for cases where it's needed
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		// Fallback logger if not initialized
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return baseLogger
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		// Fallback logger if not initialized
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		log.Sync()
	}
}

// Package-level convenience functions
func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	log.Debugf(template, args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	log.Fatalf(template, args...)
	os.Exit(1)
}
