// Package stitch merges a rolling three-day window of per-file datasets into
// exact calendar-day files. Instrument files do not align to midnight, so
// the true boundary records for day D may physically live in the last file
// dated D−1 or the first file dated D+1; those neighbors are read and the
// concatenation is trimmed to the day.
package stitch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/crocus-urban/instrument-ingest/internal/dataset"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
)

const (
	dayLayout = "20060102"

	// DefaultExt is the dataset file extension the stitcher reads and writes.
	DefaultExt = ".json"
)

// ErrKind tags the outcome of stitching one calendar day.
type ErrKind int

const (
	// ErrNone means the daily file was written.
	ErrNone ErrKind = iota

	// ErrNoFilesForWindow means none of the three date globs matched;
	// the day is skipped without output.
	ErrNoFilesForWindow

	// ErrProcessing covers any failure while reading, concatenating,
	// slicing, or writing one day.
	ErrProcessing
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "ok"
	case ErrNoFilesForWindow:
		return "no_files_for_window"
	case ErrProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Result reports the outcome of stitching one day.
type Result struct {
	Day        time.Time
	OutputPath string
	Selected   []string
	Records    int
	Deduped    int
	Kind       ErrKind
	Err        error
}

// OK reports whether the day produced an output file.
func (r Result) OK() bool { return r.Kind == ErrNone }

// Stitcher builds one canonical daily file per calendar day from a directory
// of per-file datasets spanning arbitrary sub-day windows.
type Stitcher struct {
	InputDir  string
	OutputDir string
	Prefix    string
	Ext       string

	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Stitcher. Ext defaults to DefaultExt when empty.
func New(inputDir, outputDir, prefix, ext string, logger *slog.Logger, metrics *observability.Metrics) *Stitcher {
	if ext == "" {
		ext = DefaultExt
	}
	return &Stitcher{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Prefix:    prefix,
		Ext:       ext,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run stitches every day from start to end inclusive. A failure on one day
// never aborts the batch; each day's outcome is returned and logged.
func (s *Stitcher) Run(start, end time.Time) []Result {
	var results []Result
	for day := dataset.Midnight(start); !day.After(dataset.Midnight(end)); day = day.AddDate(0, 0, 1) {
		r := s.StitchDay(day)
		results = append(results, r)
		s.report(r)
	}
	return results
}

func (s *Stitcher) report(r Result) {
	day := r.Day.Format(dayLayout)
	switch r.Kind {
	case ErrNone:
		s.logger.Info("day stitched", "day", day, "output", r.OutputPath,
			"files", len(r.Selected), "records", r.Records, "deduped", r.Deduped)
		s.metrics.DaysStitched.Inc()
	case ErrNoFilesForWindow:
		s.logger.Warn("no files for day", "day", day)
		s.metrics.DaysSkipped.Inc()
	default:
		s.logger.Error("skipping day", "day", day, "kind", r.Kind.String(), "error", r.Err)
		s.metrics.DaysSkipped.Inc()
	}
}

// StitchDay builds the daily file for the calendar day containing d.
func (s *Stitcher) StitchDay(d time.Time) Result {
	day := dataset.Midnight(d)
	res := Result{Day: day}

	selected, err := s.selectFiles(day)
	if err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	if len(selected) == 0 {
		res.Kind = ErrNoFilesForWindow
		return res
	}
	res.Selected = selected

	parts := make([]*dataset.Dataset, 0, len(selected))
	for _, path := range selected {
		ds, err := dataset.Read(path)
		if err != nil {
			res.Kind = ErrProcessing
			res.Err = err
			return res
		}
		parts = append(parts, ds)
	}

	daily, err := dataset.Concat(parts...)
	if err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	if err := daily.SortByTime(); err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	deduped, err := daily.DedupTime()
	if err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	res.Deduped = deduped

	if err := daily.SliceTime(day, day.AddDate(0, 0, 1)); err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	res.Records = daily.TimeLen()

	// Daily files follow the ARM convention: float64 seconds since the
	// day's start, standard calendar.
	if err := daily.RebaseTime(day, dataset.UnitsLayoutCompact); err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		return res
	}
	tv := daily.Vars[dataset.TimeVar]
	tv.Attrs["calendar"] = "standard"

	res.OutputPath = filepath.Join(s.OutputDir,
		fmt.Sprintf("%s%s-000000%s", s.Prefix, day.Format(dayLayout), s.Ext))
	if err := dataset.Write(res.OutputPath, daily); err != nil {
		res.Kind = ErrProcessing
		res.Err = err
		res.OutputPath = ""
		return res
	}
	return res
}

// selectFiles assembles the day's window: the last file of the previous day
// (if any), every file of the day, and the first file of the next day (if
// any). Glob results are lexicographically sorted, which sorts by the
// embedded timestamp for these names.
func (s *Stitcher) selectFiles(day time.Time) ([]string, error) {
	prev, err := s.filesForDate(day.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	current, err := s.filesForDate(day)
	if err != nil {
		return nil, err
	}
	next, err := s.filesForDate(day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(current)+2)
	if len(prev) > 0 {
		selected = append(selected, prev[len(prev)-1])
	}
	selected = append(selected, current...)
	if len(next) > 0 {
		selected = append(selected, next[0])
	}
	return selected, nil
}

func (s *Stitcher) filesForDate(day time.Time) ([]string, error) {
	pattern := filepath.Join(s.InputDir, "*"+day.Format(dayLayout)+"*"+s.Ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	return matches, nil
}
