package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging points the global zerolog logger at stderr and, when
// logFile is set, at a rotated log file as well. The returned closer
// releases the log file.
func setupLogging(level, logFile string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if logFile == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return io.NopCloser(nil), nil
	}

	rotated := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	// lumberjack creates the file lazily; fail now rather than on first write
	if _, err := rotated.Write(nil); err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logFile, err)
	}

	multi := zerolog.MultiLevelWriter(console, rotated)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	return rotated, nil
}
