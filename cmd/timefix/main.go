// Command timefix corrects the time axes of raw instrument files using each
// file's modification time as the anchor, writing corrected copies into the
// output directory under a name carrying the anchor timestamp.
//
// Usage:
//
//	timefix -i /data/raw -o /data/corrected -p "*.json" -l 3
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/crocus-urban/instrument-ingest/internal/config"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
	"github.com/crocus-urban/instrument-ingest/internal/timefix"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "timefix:", err)
		os.Exit(1)
	}
}

func run() error {
	input := flag.String("i", "", "holding directory of raw instrument files")
	output := flag.String("o", "", "directory for corrected files")
	pattern := flag.String("p", "*.json", "input filename glob")
	latency := flag.Int("l", 0, "latency in seconds; delay of the modification time w.r.t. actual time")
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		return errors.New("missing required flags: -i, -o")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	logger, logFile, err := observability.NewRunLogger(*output, "timefix", cfg.LogLevel, cfg.LogFormat, clock.Now())
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info("run arguments", "input", *input, "output", *output, "pattern", *pattern, "latency_s", *latency)

	metrics := observability.NewMetrics()
	corrector := timefix.New(*output, time.Duration(*latency)*time.Second, logger, metrics)
	if _, err := corrector.Run(*input, *pattern); err != nil {
		return err
	}

	metrics.LogSummary(logger)
	return nil
}
