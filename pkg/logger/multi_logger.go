package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryQueue     LogCategory = "queue"     // Queue lifecycle events (JSON)
	CategoryProvision LogCategory = "provision" // Binary provisioning (JSON)
	CategoryError     LogCategory = "error"     // Application errors (JSON)
	CategoryDownload  LogCategory = "download"  // Raw yt-dlp output (plain text)
)

// Categories lists every category that has a log file
var Categories = []LogCategory{CategoryQueue, CategoryProvision, CategoryError, CategoryDownload}

// MultiLogger provides categorized logging with one file per category and day.
// Structured categories are JSON; the download category holds the raw tool
// output written through DownloadSession.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
	config  MultiLoggerConfig
	mu      sync.RWMutex
	rawMu   sync.Mutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryQueue:     level,
		CategoryProvision: level,
		CategoryError:     zapcore.ErrorLevel,
	}
	for category, lvl := range levels {
		logger, err := ml.createStructuredLogger(category, lvl)
		if err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.loggers[category] = logger
	}

	return ml, nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(ml.CategoryLogPath(category, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), nil
}

// CategoryLogPath returns the log file of a category for the given day
func (ml *MultiLogger) CategoryLogPath(category LogCategory, day time.Time) string {
	return CategoryLogPath(ml.config.LogsDir, category, day)
}

// CategoryLogPath returns <logsDir>/<category>-YYYYMMDD.log
func CategoryLogPath(logsDir string, category LogCategory, day time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", category, day.Format("20060102")))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}

	// Return error logger as fallback
	return ml.loggers[CategoryError]
}

// Queue returns the queue logger (JSON format)
func (ml *MultiLogger) Queue() *zap.Logger {
	return ml.GetLogger(CategoryQueue)
}

// Provision returns the provisioning logger (JSON format)
func (ml *MultiLogger) Provision() *zap.Logger {
	return ml.GetLogger(CategoryProvision)
}

// Error returns the error logger (JSON format)
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogQueueEvent logs a queue lifecycle event with structured data
func (ml *MultiLogger) LogQueueEvent(event string, fields ...zap.Field) {
	ml.Queue().Info(event, fields...)
}

// BeginDownload opens today's raw download log and writes the session header.
// The returned session must be ended with End.
func (ml *MultiLogger) BeginDownload(downloadID, command string) (*DownloadSession, error) {
	file, err := os.OpenFile(ml.CategoryLogPath(CategoryDownload, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open download log: %w", err)
	}

	s := &DownloadSession{id: downloadID, file: file, mu: &ml.rawMu}
	s.write(fmt.Sprintf("=== [%s] START %s ===", downloadID, time.Now().Format(time.RFC3339)))
	s.write("$ " + command)
	return s, nil
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}

// DownloadSession appends one download's raw output to the download log.
// Lines of concurrent sessions never interleave mid-line.
type DownloadSession struct {
	id   string
	file *os.File
	mu   *sync.Mutex
}

// Line appends one line of tool output
func (s *DownloadSession) Line(line string) {
	s.write(line)
}

// End writes the session footer and closes the file
func (s *DownloadSession) End(exitCode int, runErr error) error {
	status := fmt.Sprintf("exit %d", exitCode)
	if runErr != nil {
		status += ": " + runErr.Error()
	}
	s.write(fmt.Sprintf("=== [%s] END %s (%s) ===", s.id, time.Now().Format(time.RFC3339), status))
	return s.file.Close()
}

func (s *DownloadSession) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.WriteString(line + "\n")
}
