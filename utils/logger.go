package utils

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CustomLogger is a logger type that embeds zap.Logger to provide logging functionalities with additional features.
type CustomLogger struct {
	zap.Logger // Embedding Logger (composition)
}

// defaultLogger is a pre-configured development logger using the zap library for structured logging.
var defaultLogger, _ = zap.NewDevelopment()

// Logger shared logger for the whole program.
// Packages keep a pointer to it, so re-initialization through InitLogger is visible everywhere.
var Logger = CustomLogger{*defaultLogger}

const (
	// LogTrace is more detailed than DEBUG. DEBUG logs work on the level of whole operations
	// (a download, a load job), TRACE logs work on the level of chunks and rows.
	LogTrace zapcore.Level = -3
)

// Trace logs a message at trace level with optional structured fields.
func (l *CustomLogger) Trace(msg string, fields ...zap.Field) {
	l.Log(LogTrace, msg, fields...)
}

// Flush flushes buffered log entries; errors from syncing the console are expected and ignored.
func (l *CustomLogger) Flush() {
	if err := l.Sync(); err != nil {
		log.Println("Expected error while syncing the logger: ", err)
	}
}

// SetLogger replaces the shared logger, it is mostly useful in unit tests with an observer core.
func SetLogger(logger *zap.Logger) {
	Logger = CustomLogger{*logger}
}

// InitLogger initializes the global logger with given options for JSON formatting, development mode, and verbosity.
func InitLogger(json bool, dev bool, verbose bool, trace bool) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if trace {
		level = zap.NewAtomicLevelAt(LogTrace)
	} else if verbose {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if json {
		config := zap.NewProductionConfig()
		config.Level = level
		config.EncoderConfig.EncodeLevel = TraceLevelEncoder
		config.OutputPaths = []string{"stderr"}
		defaultLogger, _ = config.Build()
	} else if dev {
		config := zap.NewDevelopmentConfig()
		config.Level = level
		config.EncoderConfig.EncodeLevel = TraceLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		defaultLogger, _ = config.Build()
	} else {
		// Disable timestamps by setting log flags to 0.
		// We use this logger for console error output.
		log.SetFlags(0)
		defaultLogger = newConsoleLogger(level)
	}
	Logger = CustomLogger{*defaultLogger}
}

// newConsoleLogger constructs console-friendly output, not meant for development.
// Regular messages go to stdout, errors go to stderr.
func newConsoleLogger(level zap.AtomicLevel) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",                     // Set the key for the log message
		LevelKey:       "level",                       // Leave blank to omit the log level
		TimeKey:        "",                            // Leave blank to omit the timestamp
		EncodeLevel:    IconLevelEncoder,              // instead of zapcore.CapitalLevelEncoder
		EncodeDuration: zapcore.StringDurationEncoder, // Format for durations
	})

	below := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.ErrorLevel
	})
	above := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), below),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), above),
	)
	return zap.New(core, zap.WithCaller(false))
}

// IconLevelEncoder serializes a Level to an icon - only for more important levels.
func IconLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case l >= zapcore.ErrorLevel:
		enc.AppendString("❌")
	case l == zapcore.WarnLevel:
		enc.AppendString("⚠️")
	case l == zapcore.InfoLevel:
		enc.AppendString("ℹ️")
	case l == LogTrace:
		enc.AppendString("TRACE")
	default:
		enc.AppendString(l.CapitalString())
	}
}

// TraceLevelEncoder adds TRACE level serialization, otherwise it prints LEVEL(-3)
func TraceLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == LogTrace {
		enc.AppendString("TRACE")
	} else {
		enc.AppendString(l.CapitalString())
	}
}
