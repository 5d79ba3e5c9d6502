// Package qc applies valid-range quality control to datasets. Out-of-range
// records are masked, never dropped: the time index and record count are
// preserved so downstream consumers see gaps instead of silently shortened
// series.
package qc

import (
	"fmt"
	"math"

	"github.com/crocus-urban/instrument-ingest/internal/dataset"
)

// RangePolicy masks records whose named variable falls outside the exclusive
// interval (Min, Max). Missing values in the checked variable are themselves
// out of range.
type RangePolicy struct {
	Variable string
	Min      float64
	Max      float64
}

func (p RangePolicy) String() string {
	return fmt.Sprintf("%s in (%g, %g)", p.Variable, p.Min, p.Max)
}

// Apply masks all covariate records at indices where the checked variable is
// out of range. Returns the number of records masked.
func (p RangePolicy) Apply(ds *dataset.Dataset) (int, error) {
	return ds.MaskWhere(p.Variable, func(v float64) bool {
		return !math.IsNaN(v) && v > p.Min && v < p.Max
	})
}
