package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"
)

// LogEntry represents a parsed log entry. Raw download lines only carry
// Message and Category.
type LogEntry struct {
	Timestamp string                 `json:"ts,omitempty"`
	Level     string                 `json:"level,omitempty"`
	Message   string                 `json:"msg"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogReader reads the daily category log files written by MultiLogger
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{logsDir: logsDir}
}

// ValidCategory reports whether a category has a log file
func ValidCategory(category LogCategory) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ReadLogs returns the last limit entries of a category log for a day.
// query, when set, keeps only entries whose message or level contains it
// (case-insensitive). A missing file yields no entries.
func (lr *LogReader) ReadLogs(category LogCategory, day time.Time, limit int, query string) ([]LogEntry, error) {
	file, err := os.Open(CategoryLogPath(lr.logsDir, category, day))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	query = strings.ToLower(query)
	entries := []LogEntry{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		entry := parseEntry(category, line)
		if query != "" &&
			!strings.Contains(strings.ToLower(entry.Message), query) &&
			!strings.Contains(strings.ToLower(entry.Level), query) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func parseEntry(category LogCategory, line string) LogEntry {
	entry := LogEntry{Message: line, Category: string(category)}
	if category == CategoryDownload {
		return entry
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return entry
	}

	if v, ok := raw["ts"].(string); ok {
		entry.Timestamp = v
	}
	if v, ok := raw["level"].(string); ok {
		entry.Level = v
	}
	if v, ok := raw["msg"].(string); ok {
		entry.Message = v
	}
	delete(raw, "ts")
	delete(raw, "level")
	delete(raw, "msg")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}
