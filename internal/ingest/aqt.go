// Package ingest reshapes raw per-metric telemetry streams into
// self-describing daily datasets: one column per instrument metric, indexed
// by the primary metric's timestamps, tagged with site and CF attributes,
// and quality-controlled before persisting.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/crocus-urban/instrument-ingest/internal/adapter/beehive"
	"github.com/crocus-urban/instrument-ingest/internal/dataset"
	"github.com/crocus-urban/instrument-ingest/internal/observability"
	"github.com/crocus-urban/instrument-ingest/internal/qc"
)

// PrimaryVariable is the variable whose non-missing count decides whether a
// day's dataset is worth persisting.
const PrimaryVariable = "pm2.5"

// indexMetric supplies the time index; the Vaisala AQT publishes all metrics
// on the same cadence, keyed off the pm2.5 stream.
const indexMetric = "aqt.particle.pm2.5"

// aqtColumns maps Beehive metric names to output variables, in output order.
var aqtColumns = []struct {
	metric   string
	variable string
}{
	{"aqt.particle.pm2.5", "pm2.5"},
	{"aqt.particle.pm1", "pm1.0"},
	{"aqt.particle.pm10", "pm10.0"},
	{"aqt.gas.no", "no"},
	{"aqt.gas.ozone", "o3"},
	{"aqt.gas.no2", "no2"},
	{"aqt.gas.co", "co"},
	{"aqt.env.temp", "temperature"},
	{"aqt.env.humidity", "humidity"},
	{"aqt.env.pressure", "pressure"},
}

// HumidityQC masks records where aerosol water-vapor uptake corrupts the
// particle counts: humidity must lie strictly inside (0, 98) percent.
var HumidityQC = qc.RangePolicy{Variable: "humidity", Min: 0, Max: 98}

// ErrEmptyResult signals that a day produced zero valid records after
// quality control. Callers skip persisting and move on; it is not a failure.
var ErrEmptyResult = errors.New("no valid records after quality control")

// AQT ingests Vaisala AQT-530 air-quality telemetry for one site.
type AQT struct {
	client    *beehive.Client
	site      Site
	outputDir string
	dewpoint  DewpointFunc

	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAQT creates an AQT ingestor. A nil dewpoint func selects the Magnus
// default.
func NewAQT(client *beehive.Client, site Site, outputDir string, dewpoint DewpointFunc, logger *slog.Logger, metrics *observability.Metrics) *AQT {
	if dewpoint == nil {
		dewpoint = MagnusDewpoint
	}
	return &AQT{
		client:    client,
		site:      site,
		outputDir: outputDir,
		dewpoint:  dewpoint,
		logger:    logger,
		metrics:   metrics,
	}
}

// IngestDay fetches one UTC day of telemetry, reshapes it, applies QC, and
// persists the daily dataset. Returns the written path, or ErrEmptyResult
// when nothing valid remained.
func (a *AQT) IngestDay(ctx context.Context, day time.Time) (string, error) {
	day = dataset.Midnight(day)

	samples, err := a.client.QueryRange(ctx, beehive.Query{
		Start: day.Format(time.RFC3339),
		End:   day.AddDate(0, 0, 1).Format(time.RFC3339),
		Filter: map[string]string{
			"plugin": a.site.Plugin,
			"vsn":    a.site.Node,
			"sensor": "vaisala-aqt530",
		},
	})
	if err != nil {
		return "", fmt.Errorf("query day %s: %w", day.Format("20060102"), err)
	}
	a.metrics.SamplesIngested.Add(float64(len(samples)))

	ds, err := a.BuildDataset(day, samples)
	if err != nil {
		return "", err
	}

	masked, err := HumidityQC.Apply(ds)
	if err != nil {
		return "", fmt.Errorf("apply qc: %w", err)
	}
	a.metrics.RecordsMasked.Add(float64(masked))
	if masked > 0 {
		a.logger.Info("qc masked records", "policy", HumidityQC.String(), "masked", masked)
	}

	if ds.NonMissing(PrimaryVariable) == 0 {
		a.logger.Info("not saving, no valid data", "day", day.Format("20060102"), "site", a.site.ID)
		return "", ErrEmptyResult
	}

	name := fmt.Sprintf("crocus-%s-aqt-%s-%s.json",
		strings.ToLower(a.site.ID), a.site.DataLevel, day.Format("20060102-150405"))
	path := filepath.Join(a.outputDir, name)
	if err := dataset.Write(path, ds); err != nil {
		return "", err
	}
	a.metrics.DatasetsWritten.Inc()
	return path, nil
}

// BuildDataset pivots the flat sample stream into one dataset: the index
// metric's timestamps become the time axis and every mapped metric becomes a
// record variable. All metrics must report the same number of samples as the
// index; a mismatch fails the day rather than silently misaligning rows.
func (a *AQT) BuildDataset(day time.Time, samples []beehive.Sample) (*dataset.Dataset, error) {
	byMetric := map[string][]beehive.Sample{}
	for _, s := range samples {
		byMetric[s.Name] = append(byMetric[s.Name], s)
	}

	index := byMetric[indexMetric]
	if len(index) == 0 {
		return nil, fmt.Errorf("%w: no %s samples", ErrEmptyResult, indexMetric)
	}

	ds := dataset.New()
	for k, v := range a.site.GlobalAttrs() {
		ds.Attrs[k] = v
	}

	timeVals := make([]float64, len(index))
	for i, s := range index {
		timeVals[i] = s.Timestamp.UTC().Sub(day).Seconds()
	}
	ds.Vars[dataset.TimeVar] = &dataset.Variable{
		Dims:   []string{dataset.TimeVar},
		Values: timeVals,
		Attrs: dataset.Attrs{
			"units":    dataset.FormatUnits(day, dataset.UnitsLayoutISO),
			"calendar": "standard",
		},
	}

	for _, col := range aqtColumns {
		metricSamples := byMetric[col.metric]
		if len(metricSamples) != len(index) {
			return nil, fmt.Errorf("metric %s has %d samples, index has %d",
				col.metric, len(metricSamples), len(index))
		}
		values := make([]float64, len(metricSamples))
		for i, s := range metricSamples {
			values[i] = s.Value
		}
		ds.Vars[col.variable] = &dataset.Variable{
			Dims:   []string{dataset.TimeVar},
			Values: values,
			Attrs:  attrsFor(col.variable),
		}
	}

	// Dew point is derived, not measured.
	temp := ds.Vars["temperature"].Values
	rh := ds.Vars["humidity"].Values
	dew := make([]float64, len(temp))
	for i := range temp {
		dew[i] = a.dewpoint(temp[i], rh[i])
	}
	ds.Vars["dewpoint"] = &dataset.Variable{
		Dims:   []string{dataset.TimeVar},
		Values: dew,
		Attrs:  attrsFor("dewpoint"),
	}

	if err := ds.SortByTime(); err != nil {
		return nil, err
	}
	return ds, nil
}

func attrsFor(variable string) dataset.Attrs {
	attrs := dataset.Attrs{}
	for k, v := range varAttrs[variable] {
		attrs[k] = v
	}
	return attrs
}
