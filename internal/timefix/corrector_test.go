package timefix

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocus-urban/instrument-ingest/internal/dataset"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCorrector(t *testing.T, outDir string, latency time.Duration) *Corrector {
	t.Helper()
	return New(outDir, latency, discardLogger(), observability.NewMetrics())
}

// writeRawFile creates an instrument file with the given relative time axis
// and sets its modification time.
func writeRawFile(t *testing.T, path string, epoch time.Time, times []float64, mtime time.Time) {
	t.Helper()
	ds := dataset.New()
	ds.Vars[dataset.TimeVar] = &dataset.Variable{
		Dims:   []string{dataset.TimeVar},
		Values: times,
		Attrs:  dataset.Attrs{"units": dataset.FormatUnits(epoch, dataset.UnitsLayoutISO)},
	}
	vals := make([]float64, len(times))
	for i := range vals {
		vals[i] = float64(i)
	}
	ds.Vars["backscatter"] = &dataset.Variable{Dims: []string{dataset.TimeVar}, Values: vals}
	require.NoError(t, dataset.Write(path, ds))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestCorrectFile_AnchorsLastSampleToModTime(t *testing.T) {
	// Three-minute file: relative axis [0,60,120,180], mtime
	// 2024-06-20T08:00:03Z, latency 3s. The anchor is 08:00:00, so the
	// corrected axis is [28620,28680,28740,28800] seconds since midnight.
	inDir, outDir := t.TempDir(), t.TempDir()
	path := filepath.Join(inDir, "crocus-neiu-ceil-a1-20240619_235500.json")
	mtime := time.Date(2024, 6, 20, 8, 0, 3, 0, time.UTC)
	writeRawFile(t, path, time.Date(2024, 6, 19, 23, 55, 0, 0, time.UTC), []float64{0, 60, 120, 180}, mtime)

	c := newCorrector(t, outDir, 3*time.Second)
	res := c.CorrectFile(path)

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, filepath.Join(outDir, "crocus-neiu-ceil-a1-20240620_080000.json"), res.NewPath)

	got, err := dataset.Read(res.NewPath)
	require.NoError(t, err)
	tv := got.Vars[dataset.TimeVar]
	assert.Equal(t, []float64{28620, 28680, 28740, 28800}, tv.Values)
	assert.Equal(t, "seconds since 2024-06-20 00:00:00", tv.Attrs.String("units"))

	// Covariates are untouched.
	assert.Equal(t, []float64{0, 1, 2, 3}, got.Vars["backscatter"].Values)
}

func TestCorrectFile_ZeroLatencyAnchorEqualsModTime(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := filepath.Join(inDir, "ceil-20240620_070000.json")
	mtime := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)
	writeRawFile(t, path, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), []float64{10, 40, 100}, mtime)

	c := newCorrector(t, outDir, 0)
	res := c.CorrectFile(path)
	require.True(t, res.OK(), "unexpected error: %v", res.Err)

	got, err := dataset.Read(res.NewPath)
	require.NoError(t, err)
	vals := got.Vars[dataset.TimeVar].Values

	// Last sample lands exactly on the anchor: 08:00:00 = 28800s.
	assert.Equal(t, 28800.0, vals[len(vals)-1])
	// Instrument spacing is preserved exactly.
	assert.Equal(t, 30.0, vals[1]-vals[0])
	assert.Equal(t, 60.0, vals[2]-vals[1])
}

func TestCorrectFile_OriginalUntouched(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := filepath.Join(inDir, "ceil-20240620_070000.json")
	mtime := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)
	writeRawFile(t, path, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), []float64{0, 60}, mtime)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	res := newCorrector(t, outDir, 0).CorrectFile(path)
	require.True(t, res.OK())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCorrectFile_GroupAxesAdjusted(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := filepath.Join(inDir, "ceil-20240620_070000.json")

	epoch := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	ds := dataset.New()
	ds.Vars[dataset.TimeVar] = &dataset.Variable{
		Dims:   []string{dataset.TimeVar},
		Values: []float64{0, 60},
		Attrs:  dataset.Attrs{"units": dataset.FormatUnits(epoch, dataset.UnitsLayoutISO)},
	}
	monitoring := dataset.New()
	monitoring.Vars[dataset.TimeVar] = &dataset.Variable{
		Dims:   []string{dataset.TimeVar},
		Values: []float64{0, 120},
		Attrs:  dataset.Attrs{"units": dataset.FormatUnits(epoch, dataset.UnitsLayoutISO)},
	}
	status := dataset.New() // no time variable
	ds.Groups = map[string]*dataset.Dataset{
		dataset.GroupMonitoring: monitoring,
		dataset.GroupStatus:     status,
	}
	require.NoError(t, dataset.Write(path, ds))
	mtime := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	res := newCorrector(t, outDir, 0).CorrectFile(path)
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, []string{dataset.GroupStatus}, res.GroupWarnings)

	got, err := dataset.Read(res.NewPath)
	require.NoError(t, err)
	// Monitoring has its own axis, anchored independently with its own interval.
	assert.Equal(t, []float64{28680, 28800}, got.Groups[dataset.GroupMonitoring].Vars[dataset.TimeVar].Values)
}

func TestCorrectFile_Failures(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	mtime := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)
	c := newCorrector(t, outDir, 0)

	t.Run("missing file is anchor unavailable", func(t *testing.T) {
		res := c.CorrectFile(filepath.Join(inDir, "absent.json"))
		assert.Equal(t, ErrAnchorUnavailable, res.Kind)
		assert.Empty(t, res.NewPath)
	})

	t.Run("no time variable", func(t *testing.T) {
		path := filepath.Join(inDir, "no-time-20240620_000000.json")
		ds := dataset.New()
		ds.Vars["backscatter"] = &dataset.Variable{Dims: []string{dataset.TimeVar}, Values: []float64{1}}
		require.NoError(t, dataset.Write(path, ds))
		require.NoError(t, os.Chtimes(path, mtime, mtime))

		res := c.CorrectFile(path)
		assert.Equal(t, ErrTimeVariableMissing, res.Kind)
	})

	t.Run("empty time axis", func(t *testing.T) {
		path := filepath.Join(inDir, "empty-20240620_000000.json")
		writeRawFile(t, path, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), []float64{}, mtime)

		res := c.CorrectFile(path)
		assert.Equal(t, ErrProcessing, res.Kind)
		assert.ErrorIs(t, res.Err, dataset.ErrEmptyTime)
	})

	t.Run("bad units", func(t *testing.T) {
		path := filepath.Join(inDir, "units-20240620_000000.json")
		ds := dataset.New()
		ds.Vars[dataset.TimeVar] = &dataset.Variable{
			Dims:   []string{dataset.TimeVar},
			Values: []float64{0},
			Attrs:  dataset.Attrs{"units": "days since whenever"},
		}
		require.NoError(t, dataset.Write(path, ds))
		require.NoError(t, os.Chtimes(path, mtime, mtime))

		res := c.CorrectFile(path)
		assert.Equal(t, ErrProcessing, res.Kind)

		// No output was produced under any name.
		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), "units-")
		}
	})
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	mtime := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)

	good := filepath.Join(inDir, "a-20240620_070000.json")
	writeRawFile(t, good, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), []float64{0, 60}, mtime)

	bad := filepath.Join(inDir, "b-20240620_070000.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	require.NoError(t, os.Chtimes(bad, mtime, mtime))

	results, err := newCorrector(t, outDir, 0).Run(inDir, "*.json")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].OK())
	assert.Equal(t, ErrProcessing, results[1].Kind)
}

func TestRenameBase(t *testing.T) {
	anchor := time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		base     string
		expected string
	}{
		{"embedded stamp", "ceil-20240619_235500.json", "ceil-20240620_080000.json"},
		{"no stamp", "ceil.json", "ceil.json"},
		{"stamp mid-name", "a-20240101_000000-b.json", "a-20240620_080000-b.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renameBase(tt.base, anchor))
		})
	}
}
