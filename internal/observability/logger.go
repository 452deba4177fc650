package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type LoggerOptions struct {
	Env string
	// LogsDir receives app_YYYYMMDD.log when ToFile is set.
	LogsDir string
	ToFile  bool
	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

// NewLogger returns a JSON logger that adds trace ids to every record. The
// returned closer releases the log file, if any.
func NewLogger(opts LoggerOptions) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo

	if opts.Env == "dev" {
		level = slog.LevelDebug
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}

	if opts.ToFile {
		if err := os.MkdirAll(opts.LogsDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create logs dir: %w", err)
		}

		name := filepath.Join(opts.LogsDir, "app_"+time.Now().Format("20060102")+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}

		out = io.MultiWriter(out, f)
		closer = f
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
