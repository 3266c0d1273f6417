package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// Options configures a ZapLogger. Console false keeps output in the file only.
type Options struct {
	FilePath   string
	Level      string
	Production bool
	Console    bool
}

type ZapLogger struct {
	logger *zap.Logger
	base   map[string]interface{}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.InfoLevel
	}
	return lvl
}

func fileCore(path string, level zapcore.Level) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)
}

func consoleCore(production bool, level zapcore.Level) zapcore.Core {
	var encoder zapcore.Encoder
	if production {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	return zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
}

// New builds a logger writing JSON lines to a rotated file, optionally
// mirrored to stdout.
func New(opts Options) *ZapLogger {
	level := parseLevel(opts.Level)

	cores := []zapcore.Core{}
	if opts.FilePath != "" {
		cores = append(cores, fileCore(opts.FilePath, level))
	}
	if opts.Console {
		cores = append(cores, consoleCore(opts.Production, level))
	}

	return &ZapLogger{
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2)),
	}
}

// NewZapLogger is the API logger: file plus console.
func NewZapLogger(logFilePath, level string, isProd bool) *ZapLogger {
	return New(Options{FilePath: logFilePath, Level: level, Production: isProd, Console: true})
}

// NewIsolatedLogger writes only to its file. The research engine logs every
// stage of every cycle there.
func NewIsolatedLogger(logFilePath, level string) *ZapLogger {
	return New(Options{FilePath: logFilePath, Level: level})
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

// With returns a logger that merges fields into every entry's details.
func (l *ZapLogger) With(fields map[string]interface{}) *ZapLogger {
	base := make(map[string]interface{}, len(l.base)+len(fields))
	for k, v := range l.base {
		base[k] = v
	}
	for k, v := range fields {
		base[k] = v
	}
	return &ZapLogger{logger: l.logger, base: base}
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}

	merged := make(map[string]interface{}, len(l.base)+len(details))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}

	fields := []zap.Field{zap.String("module", module), zap.Any("details", merged)}
	if err, ok := merged["error"].(error); ok {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zap.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zap.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zap.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zap.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
