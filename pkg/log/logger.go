package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

const LogsDirPath = "logs"

// String converts Level to string
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts string to Level
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Entry represents a structured log entry
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Logger writes human-readable lines to the console and JSON entries to a
// rotated log file.
type Logger struct {
	level      Level
	fileWriter io.Writer
	consoleOut io.Writer
	consoleErr io.Writer
	closer     io.Closer
	fields     map[string]any
}

// Config logger configuration
type Config struct {
	Level      Level
	LogDir     string
	FileName   string
	EnableFile bool
}

// New creates a new logger instance
func New(config Config) (*Logger, error) {
	logger := &Logger{
		level:      config.Level,
		consoleOut: os.Stdout,
		consoleErr: os.Stderr,
		fields:     make(map[string]any),
	}

	if config.EnableFile {
		if err := os.MkdirAll(config.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create logs directory: %w", err)
		}

		name := config.FileName
		if name == "" {
			name = "easy-roles.log"
		}

		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(config.LogDir, name),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		logger.fileWriter = rotated
		logger.closer = rotated
	}

	return logger, nil
}

// WithField adds a field to the logger (returns new instance)
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newLogger := *l
	newLogger.fields = make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return &newLogger
}

func (l *Logger) log(level Level, message string, err error) {
	if level < l.level {
		return
	}

	entry := Entry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Fields:    l.fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if l.fileWriter != nil {
		jsonData, _ := json.Marshal(entry)
		fmt.Fprintln(l.fileWriter, string(jsonData))
	}

	l.writeToConsole(entry)
}

func (l *Logger) writeToConsole(entry Entry) {
	output := l.consoleOut
	if entry.Level == "WARN" || entry.Level == "ERROR" {
		output = l.consoleErr
	}
	if output == nil {
		return
	}

	timestamp := entry.Timestamp[11:19] // HH:MM:SS

	message := fmt.Sprintf("%s [%s] %s", timestamp, entry.Level, entry.Message)

	if len(entry.Fields) > 0 {
		var fieldParts []string
		for k, v := range entry.Fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, v))
		}
		message += fmt.Sprintf(" | %s", strings.Join(fieldParts, " "))
	}
	if entry.Error != "" {
		message += fmt.Sprintf(" | error=%s", entry.Error)
	}

	fmt.Fprintln(output, message)
}

func (l *Logger) Debug(message string) {
	l.log(DebugLevel, message, nil)
}

func (l *Logger) Debugf(format string, args ...any) {
	if DebugLevel >= l.level {
		l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) Info(message string) {
	l.log(InfoLevel, message, nil)
}

func (l *Logger) Infof(format string, args ...any) {
	if InfoLevel >= l.level {
		l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) Warn(message string) {
	l.log(WarnLevel, message, nil)
}

func (l *Logger) Warnf(format string, args ...any) {
	if WarnLevel >= l.level {
		l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) Error(message string) {
	l.log(ErrorLevel, message, nil)
}

func (l *Logger) Errorf(format string, args ...any) {
	if ErrorLevel >= l.level {
		l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) ErrorWithErr(message string, err error) {
	l.log(ErrorLevel, message, err)
}

// Close closes the rotated log file
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Global logger for convenience
var GlobalLogger *Logger

// Setup initializes the global logger from the environment.
func Setup(appName string) error {
	logger, err := New(Config{
		Level:      ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:     LogsDirPath,
		FileName:   appName + ".log",
		EnableFile: true,
	})
	if err != nil {
		return err
	}
	GlobalLogger = logger
	return nil
}

// CloseGlobal closes the global logger
func CloseGlobal() error {
	if GlobalLogger != nil {
		return GlobalLogger.Close()
	}
	return nil
}

// Default returns the global logger, creating a console-only fallback when
// Setup has not run (tests, tooling).
func Default() *Logger {
	if GlobalLogger == nil {
		GlobalLogger = &Logger{
			level:      InfoLevel,
			consoleOut: os.Stdout,
			consoleErr: os.Stderr,
			fields:     make(map[string]any),
		}
	}
	return GlobalLogger
}

// WithField creates a logger with an additional field
func WithField(key string, value any) *Logger {
	return Default().WithField(key, value)
}

// WithFields creates a logger with additional fields
func WithFields(fields map[string]any) *Logger {
	return Default().WithFields(fields)
}

func Info(message string)                  { Default().Info(message) }
func Infof(format string, args ...any)     { Default().Infof(format, args...) }
func Warn(message string)                  { Default().Warn(message) }
func Warnf(format string, args ...any)     { Default().Warnf(format, args...) }
func Error(message string)                 { Default().Error(message) }
func Errorf(format string, args ...any)    { Default().Errorf(format, args...) }
func ErrorWithErr(message string, e error) { Default().ErrorWithErr(message, e) }
func Debug(message string)                 { Default().Debug(message) }
func Debugf(format string, args ...any)    { Default().Debugf(format, args...) }
