package config

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns the default path of the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "research-api.log")
}

// InitLogging opens the log file, points the standard logger at stdout plus
// the file and installs a JSON slog logger at the configured level. The
// returned file is nil when only stdout could be used.
func InitLogging(path, level string) (*os.File, *slog.Logger) {
	if path == "" {
		path = LogFilePath()
	}
	var logFile *os.File
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
		LogWriter = os.Stdout
	} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		LogWriter = os.Stdout
	} else {
		logFile = f
		LogWriter = io.MultiWriter(os.Stdout, logFile)
	}
	log.SetOutput(LogWriter)

	logger := slog.New(slog.NewJSONHandler(LogWriter, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logFile, logger
}

// parseLevel accepts debug, info, warn and error. Unknown input means info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
