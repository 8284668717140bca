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

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	// 1. Configure Rotation (Lumberjack)
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10,   // Megabytes
		MaxBackups: 5,    // Files
		MaxAge:     30,   // Days
		Compress:   true, // gzip
	}

	// 2. Configure Encoder (JSON)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	// 3. Configure Output Cores
	fileCore := zapcore.NewCore(
		jsonEncoder,
		zapcore.AddSync(rotator),
		zap.InfoLevel,
	)

	// Console Core
	var consoleEncoder zapcore.Encoder
	if isProd {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)

	// Join Cores (Tee)
	core := zapcore.NewTee(fileCore, consoleCore)

	// Create Logger
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)) // Skip 1 to point to caller of wrapper

	return &ZapLogger{
		logger:   l,
		filePath: logFilePath,
	}
}

func (z *ZapLogger) log(level zapcore.Level, module, message string, details map[string]interface{}) {
	fields := []zap.Field{
		zap.String("module", module),
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}

	switch level {
	case zap.DebugLevel:
		z.logger.Debug(message, fields...)
	case zap.InfoLevel:
		z.logger.Info(message, fields...)
	case zap.WarnLevel:
		z.logger.Warn(message, fields...)
	case zap.ErrorLevel:
		z.logger.Error(message, fields...)
	}
}

func (z *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	z.log(zap.DebugLevel, module, message, details)
}

func (z *ZapLogger) Info(module, message string, details map[string]interface{}) {
	z.log(zap.InfoLevel, module, message, details)
}

func (z *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	z.log(zap.WarnLevel, module, message, details)
}

func (z *ZapLogger) Error(module, message string, details map[string]interface{}) {
	z.log(zap.ErrorLevel, module, message, details)
}

func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
