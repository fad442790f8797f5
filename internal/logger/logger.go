package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*logrus.Logger
	fileLogger *logrus.Logger
}

var defaultLogger *Logger

func init() {
	// 控制台日志配置
	consoleLogger := logrus.New()
	consoleLogger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	consoleLogger.SetOutput(os.Stdout)
	consoleLogger.SetLevel(logrus.InfoLevel)

	// 文件日志配置
	fileLogger := logrus.New()
	fileLogger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint:     false,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	fileLogger.SetLevel(logrus.InfoLevel)

	// 创建日志目录
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		consoleLogger.Errorf("无法创建日志目录: %v", err)
	}

	// 使用lumberjack进行日志轮转
	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "docscribe.log"),
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}

	fileLogger.SetOutput(logFile)

	defaultLogger = &Logger{
		Logger:     consoleLogger,
		fileLogger: fileLogger,
	}
}

// SetVerbose 开启后控制台输出 Debug 日志
func SetVerbose(verbose bool) {
	if verbose {
		defaultLogger.Logger.SetLevel(logrus.DebugLevel)
		return
	}
	defaultLogger.Logger.SetLevel(logrus.InfoLevel)
}

// WithRequest 返回带请求 ID 的日志条目，控制台与文件各一份
func WithRequest(requestID string) *Entry {
	return &Entry{
		console: defaultLogger.Logger.WithField("request_id", requestID),
		file:    defaultLogger.fileLogger.WithField("request_id", requestID),
	}
}

type Entry struct {
	console *logrus.Entry
	file    *logrus.Entry
}

func (e *Entry) Infof(format string, args ...any) {
	e.console.Infof(format, args...)
	e.file.Infof(format, args...)
}

func (e *Entry) Warnf(format string, args ...any) {
	e.console.Warnf(format, args...)
	e.file.Warnf(format, args...)
}

func (e *Entry) Errorf(format string, args ...any) {
	e.console.Errorf(format, args...)
	e.file.Errorf(format, args...)
}

func Infof(format string, args ...any) {
	defaultLogger.Logger.Infof(format, args...)
	defaultLogger.fileLogger.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Logger.Warnf(format, args...)
	defaultLogger.fileLogger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	defaultLogger.Logger.Errorf(format, args...)
	defaultLogger.fileLogger.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	defaultLogger.fileLogger.Errorf(format, args...)
	defaultLogger.Logger.Fatalf(format, args...)
}

func Debugf(format string, args ...any) {
	defaultLogger.Logger.Debugf(format, args...)
	defaultLogger.fileLogger.Debugf(format, args...)
}

// AccessLogger chi 访问日志的输出，同时写入控制台与文件
type AccessLogger struct{}

func (AccessLogger) Print(v ...any) {
	msg := fmt.Sprint(v...)
	defaultLogger.Logger.Info(msg)
	defaultLogger.fileLogger.Info(msg)
}
