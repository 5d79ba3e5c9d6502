package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// NewRunLogger builds a logger for one batch run: output is mirrored to
// stderr and to a timestamped log file in dir
// ("log_<tool>_2006-01-02_15-04-05.txt"). The returned closer releases the
// log file; callers close it when the run ends.
func NewRunLogger(dir, tool, level, format string, now time.Time) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("log_%s_%s.txt", tool, now.UTC().Format("2006-01-02_15-04-05"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}

	w := io.MultiWriter(os.Stderr, f)
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), f, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
