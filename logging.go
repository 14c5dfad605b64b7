package httpcore

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the sink the exchange engine writes its DEBUG/WARNING/ERROR
// trace to. It is satisfied by *ZapLogger below, and by anything else
// with the same three methods, so callers may plug in their own sink.
type Logger interface {
	Debugf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// nopLogger discards everything. Used when a Server is built without an
// explicit Logger.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// LogOptions configures the default zap-backed Logger. Struct tags allow
// an external config loader to unpack onto this directly; httpcore never
// reads a config file itself.
type LogOptions struct {
	Stdout     bool   `config:"stdout"`
	Level      string `config:"level"`
	Filename   string `config:"filename"`
	MaxSizeMB  int    `config:"maxSize"`
	MaxAgeDays int    `config:"maxAge"`
	MaxBackups int    `config:"maxBackups"`
}

// ZapLogger backs Logger with go.uber.org/zap, rotating to disk through
// lumberjack when Filename is set.
type ZapLogger struct {
	sugared *zap.SugaredLogger
}

func (l ZapLogger) Debugf(template string, args ...interface{}) { l.sugared.Debugf(template, args...) }
func (l ZapLogger) Warnf(template string, args ...interface{})  { l.sugared.Warnf(template, args...) }
func (l ZapLogger) Errorf(template string, args ...interface{}) { l.sugared.Errorf(template, args...) }

func levelFromString(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewZapLogger builds the default structured Logger. When opt.Filename is
// empty, output goes to stdout only.
func NewZapLogger(opt LogOptions) *ZapLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var writers []zapcore.WriteSyncer
	if opt.Stdout || opt.Filename == "" {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if opt.Filename != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSizeMB,
			MaxAge:     opt.MaxAgeDays,
			MaxBackups: opt.MaxBackups,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writers...),
		levelFromString(opt.Level),
	)
	return &ZapLogger{sugared: zap.New(core).Sugar()}
}
