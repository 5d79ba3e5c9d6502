// Command aqtingest pulls Vaisala AQT-530 air-quality telemetry from the
// Beehive query API, reshapes it into daily self-describing datasets, applies
// humidity quality control, and writes one file per day. Site identity and
// API credentials come from the environment (see internal/config).
//
// Usage:
//
//	aqtingest -date 2024-06-20 -days 1 -o /data/ingested
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/crocus-urban/instrument-ingest/internal/adapter/beehive"
	"github.com/crocus-urban/instrument-ingest/internal/config"
	"github.com/crocus-urban/instrument-ingest/internal/ingest"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
)

const dateLayout = "2006-01-02"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aqtingest:", err)
		os.Exit(1)
	}
}

func run() error {
	dateStr := flag.String("date", "", "first day to ingest, YYYY-MM-DD (default: yesterday UTC)")
	days := flag.Int("days", 1, "number of consecutive days to ingest")
	output := flag.String("o", ".", "output directory")
	flag.Parse()

	if *days < 1 {
		return errors.New("-days must be at least 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	site, ok := ingest.LookupSite(cfg.SiteID)
	if !ok {
		return fmt.Errorf("unknown site %q", cfg.SiteID)
	}

	clock := clockwork.NewRealClock()
	start, err := firstDay(*dateStr, clock)
	if err != nil {
		return err
	}

	logger, logFile, err := observability.NewRunLogger(*output, "aqtingest", cfg.LogLevel, cfg.LogFormat, clock.Now())
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info("run arguments", "site", site.ID, "start", start.Format(dateLayout),
		"days", *days, "output", *output)

	metrics := observability.NewMetrics()
	client := beehive.NewClient(cfg.BeehiveURL, cfg.BeehiveUsername, cfg.BeehivePassword, cfg.BeehiveTimeout, logger)
	ingestor := ingest.NewAQT(client, site, *output, nil, logger, metrics)

	ctx := context.Background()
	for i := 0; i < *days; i++ {
		day := start.AddDate(0, 0, i)
		path, err := ingestor.IngestDay(ctx, day)
		switch {
		case errors.Is(err, ingest.ErrEmptyResult):
			// Logged by the ingestor; an empty day is not a failure.
		case err != nil:
			logger.Error("day failed", "day", day.Format(dateLayout), "error", err)
		default:
			logger.Info("day ingested", "day", day.Format(dateLayout), "output", path)
		}
	}

	metrics.LogSummary(logger)
	return nil
}

// firstDay resolves the starting day: an explicit -date, or yesterday UTC
// truncated to midnight.
func firstDay(dateStr string, clock clockwork.Clock) (time.Time, error) {
	if dateStr == "" {
		y := clock.Now().UTC().AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -date: %w", err)
	}
	return day, nil
}
