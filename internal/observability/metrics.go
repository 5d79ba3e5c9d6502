package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the Prometheus counters for one batch run. The tools are
// short-lived and serve no HTTP, so metrics live on a private registry and
// are dumped to the run log on completion.
type Metrics struct {
	registry *prometheus.Registry

	FilesCorrected prometheus.Counter
	FilesSkipped   prometheus.Counter

	DaysStitched prometheus.Counter
	DaysSkipped  prometheus.Counter

	SamplesIngested prometheus.Counter
	RecordsMasked   prometheus.Counter
	DatasetsWritten prometheus.Counter
}

// NewMetrics creates and registers all batch metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "files_corrected_total",
			Help:      "Files whose time axis was corrected and written.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "files_skipped_total",
			Help:      "Input files skipped due to a per-file failure.",
		}),
		DaysStitched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "days_stitched_total",
			Help:      "Calendar days stitched into a daily file.",
		}),
		DaysSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "days_skipped_total",
			Help:      "Calendar days skipped (no files or per-day failure).",
		}),
		SamplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "samples_ingested_total",
			Help:      "Raw telemetry samples reshaped into datasets.",
		}),
		RecordsMasked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "records_masked_total",
			Help:      "Records masked by quality-control range checks.",
		}),
		DatasetsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crocus_ingest",
			Name:      "datasets_written_total",
			Help:      "Dataset files persisted.",
		}),
	}

	m.registry.MustRegister(
		m.FilesCorrected,
		m.FilesSkipped,
		m.DaysStitched,
		m.DaysSkipped,
		m.SamplesIngested,
		m.RecordsMasked,
		m.DatasetsWritten,
	)

	return m
}

// LogSummary writes every non-zero counter to the logger, one line per
// metric. Called at the end of a run.
func (m *Metrics) LogSummary(logger *slog.Logger) {
	families, err := m.registry.Gather()
	if err != nil {
		logger.Warn("gather metrics failed", "error", err)
		return
	}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			if v := counterValue(metric); v > 0 {
				logger.Info("run summary", "metric", fam.GetName(), "value", v)
			}
		}
	}
}

func counterValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}
