// Package logging is soundscope's human-readable log file. Pipeline events go
// to the otel JSONL log instead; this one is for lifecycle and failures a
// person would grep for.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// KeepDays is how many daily log files Init leaves in place.
const KeepDays = 7

const (
	filePrefix = "soundscope-"
	fileSuffix = ".log"
	dayLayout  = "2006-01-02"
)

var (
	// Logger is the process-wide logger. Nil until Init.
	Logger *log.Logger

	logFile *os.File
)

// Init opens <dataDir>/logs/soundscope-YYYY-MM-DD.log for appending and
// removes daily files beyond KeepDays.
func Init(dataDir string, debug bool) error {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	name := FileName(time.Now())
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f

	InitWriter(f, debug)
	if removed, err := Prune(logDir, KeepDays); err != nil {
		Warn("Prune logs", "error", err)
	} else if len(removed) > 0 {
		Debug("Pruned logs", "count", len(removed))
	}
	return nil
}

// FileName is the log file name for day t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(dayLayout) + fileSuffix
}

// Prune deletes the oldest daily log files in dir so at most keep remain.
// Files not named by FileName are left alone. Returns the removed names.
func Prune(dir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var days []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, filePrefix) || !strings.HasSuffix(n, fileSuffix) {
			continue
		}
		if _, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(n, filePrefix), fileSuffix)); err != nil {
			continue
		}
		days = append(days, n)
	}
	if len(days) <= keep {
		return nil, nil
	}
	// The date layout sorts lexically.
	sort.Strings(days)
	stale := days[:len(days)-keep]
	for _, n := range stale {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

// InitWriter points the logger at w. Used by Init and by tests.
func InitWriter(w io.Writer, debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Close flushes and closes the log file.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
