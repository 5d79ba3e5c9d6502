// Package timefix recovers trustworthy absolute timestamps for instrument
// files whose internal clock is unreliable. The file's modification time,
// minus a configured latency, anchors the last sample; the instrument's
// internal sample spacing is preserved exactly.
package timefix

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/crocus-urban/instrument-ingest/internal/dataset"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
)

// stampRe matches the YYYYMMDD_HHMMSS timestamp embedded in instrument file
// names, e.g. "crocus-neiu-ceil-a1-20240620_075500.json".
var stampRe = regexp.MustCompile(`\d{8}_\d{6}`)

const stampLayout = "20060102_150405"

// Corrector rewrites the time axes of instrument files against a
// modification-time anchor and writes the corrected copies to OutputDir.
// Originals are never modified.
type Corrector struct {
	OutputDir string
	Latency   time.Duration

	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Corrector writing corrected files into outputDir.
func New(outputDir string, latency time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Corrector {
	return &Corrector{
		OutputDir: outputDir,
		Latency:   latency,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run corrects every file in inputDir matching pattern, one file at a time.
// Failures are contained per file; the batch always runs to completion.
func (c *Corrector) Run(inputDir, pattern string) ([]Result, error) {
	paths, err := filepath.Glob(filepath.Join(inputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		r := c.CorrectFile(path)
		results = append(results, r)
		c.report(r)
	}
	return results, nil
}

func (c *Corrector) report(r Result) {
	switch r.Kind {
	case ErrNone:
		for _, w := range r.GroupWarnings {
			c.logger.Warn("group left unadjusted", "file", r.Path, "group", w)
		}
		c.logger.Info("corrected", "file", r.Path, "output", r.NewPath)
		c.metrics.FilesCorrected.Inc()
	default:
		c.logger.Error("skipping file", "file", r.Path, "kind", r.Kind.String(), "error", r.Err)
		c.metrics.FilesSkipped.Inc()
	}
}

// CorrectFile corrects a single file and reports the outcome. The corrected
// dataset is built in memory and written atomically; a failure at any step
// leaves no output under the final name.
func (c *Corrector) CorrectFile(path string) Result {
	res := Result{Path: path}

	fi, err := os.Stat(path)
	if err != nil {
		res.Kind = ErrAnchorUnavailable
		res.Err = fmt.Errorf("read modification time: %w", err)
		return res
	}
	anchor := fi.ModTime().UTC().Add(-c.Latency)
	midnight := dataset.Midnight(anchor)

	ds, err := dataset.Read(path)
	if err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}

	tv, err := ds.Time()
	if err != nil {
		res.Kind = ErrTimeVariableMissing
		res.Err = err
		return res
	}
	if err := adjustVariable(tv, anchor, midnight); err != nil {
		res.Kind = ErrProcessing
		res.Err = fmt.Errorf("adjust time: %w", err)
		return res
	}

	// Instrument monitoring and status channels carry their own time axes.
	// A missing or unadjustable group axis is a warning, not fatal: the
	// group is left untouched and surfaced in the result.
	for _, name := range []string{dataset.GroupMonitoring, dataset.GroupStatus} {
		group, ok := ds.Groups[name]
		if !ok {
			continue
		}
		gtv, err := group.Time()
		if err != nil {
			res.GroupWarnings = append(res.GroupWarnings, name)
			continue
		}
		if err := adjustVariable(gtv, anchor, midnight); err != nil {
			res.GroupWarnings = append(res.GroupWarnings, name)
		}
	}

	res.NewPath = filepath.Join(c.OutputDir, renameBase(filepath.Base(path), anchor))
	if err := dataset.Write(res.NewPath, ds); err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		res.NewPath = ""
		return res
	}
	return res
}

// adjustVariable shifts a time variable so its last sample lands on the
// anchor, expressed as seconds since the anchor's midnight. Only the spacing
// between samples is trusted; the stored absolute values are discarded. All
// validation happens before the first mutation, so a failed adjustment
// leaves the variable exactly as it was.
func adjustVariable(v *dataset.Variable, anchor, midnight time.Time) error {
	if _, err := dataset.ParseUnits(v.Attrs.String("units")); err != nil {
		return err
	}
	if len(v.Values) == 0 {
		return dataset.ErrEmptyTime
	}

	first := v.Values[0]
	totalInterval := v.Values[len(v.Values)-1] - first
	secondsSinceMidnight := anchor.Sub(midnight).Seconds() - totalInterval

	for i := range v.Values {
		v.Values[i] = secondsSinceMidnight + (v.Values[i] - first)
	}
	v.Attrs["units"] = dataset.FormatUnits(midnight, dataset.UnitsLayoutISO)
	return nil
}

// renameBase substitutes the embedded timestamp in a file name with the
// anchor. Names without a recognizable timestamp are kept as-is.
func renameBase(base string, anchor time.Time) string {
	return stampRe.ReplaceAllString(base, anchor.Format(stampLayout))
}
