// Command dailystitch merges corrected per-file datasets into one canonical
// file per calendar day. Time in the output follows the DoE ARM convention:
// float64 seconds since the day's start, standard calendar.
//
// Usage:
//
//	dailystitch -start 2024-06-19 -end 2024-06-21 -i /data/corrected -o /data/daily
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
	"github.com/crocus-urban/instrument-ingest/internal/stitch"
)

const dateLayout = "2006-01-02"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dailystitch:", err)
		os.Exit(1)
	}
}

func run() error {
	startStr := flag.String("start", "", "first day, YYYY-MM-DD")
	endStr := flag.String("end", "", "last day, YYYY-MM-DD")
	input := flag.String("i", "", "directory of corrected per-file datasets")
	output := flag.String("o", "", "directory for daily files")
	prefix := flag.String("prefix", "crocus-neiu-ceil-a1-", "output filename prefix, added before the date string")
	flag.Parse()

	if *startStr == "" || *endStr == "" || *input == "" || *output == "" {
		flag.Usage()
		return errors.New("missing required flags: -start, -end, -i, -o")
	}

	start, err := time.ParseInLocation(dateLayout, *startStr, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, *endStr, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}
	if end.Before(start) {
		return errors.New("-end is before -start")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	logger, logFile, err := observability.NewRunLogger(*output, "dailystitch", cfg.LogLevel, cfg.LogFormat, clock.Now())
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info("run arguments", "start", *startStr, "end", *endStr,
		"input", *input, "output", *output, "prefix", *prefix)

	metrics := observability.NewMetrics()
	stitcher := stitch.New(*input, *output, *prefix, "", logger, metrics)
	stitcher.Run(start, end)

	metrics.LogSummary(logger)
	return nil
}
