// Package dataset implements the self-describing array files the ingest
// tools exchange: named variables with dimensions and attributes, optional
// sub-groups, and a record-index time variable whose units attribute encodes
// its epoch ("seconds since <timestamp>").
//
// Missing values are represented as NaN in memory and as JSON null on disk.
// Files ending in ".gz" are transparently gzip-compressed.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeVar is the canonical name of the record-index variable.
const TimeVar = "time"

// Group names the corrector visits in addition to the root time variable.
const (
	GroupMonitoring = "monitoring"
	GroupStatus     = "status"
)

var (
	// ErrTimeMissing indicates a dataset (or group) has no time variable.
	ErrTimeMissing = errors.New("time variable missing")

	// ErrEmptyTime indicates a time variable with zero samples.
	ErrEmptyTime = errors.New("time variable has no samples")
)

// Attrs holds attribute metadata for a dataset or variable.
type Attrs map[string]any

// String returns the attribute as a string, or "" when absent or non-string.
func (a Attrs) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Variable is a named array with dimensions and attributes. Values are stored
// flat in row-major order; a record variable has "time" as its first
// dimension and len(Values) is a multiple of the time axis length.
type Variable struct {
	Dims   []string  `json:"dims"`
	Values []float64 `json:"values"`
	Attrs  Attrs     `json:"attrs,omitempty"`
}

// IsRecord reports whether the variable is indexed by time.
func (v *Variable) IsRecord() bool {
	return len(v.Dims) > 0 && v.Dims[0] == TimeVar
}

// rowWidth returns the number of values per time step for a record variable
// with n time samples. Returns 1 for scalar-per-step variables.
func (v *Variable) rowWidth(n int) int {
	if n == 0 || len(v.Values) == 0 {
		return 1
	}
	w := len(v.Values) / n
	if w < 1 {
		return 1
	}
	return w
}

// variableJSON is the on-disk form of Variable: NaN round-trips as null,
// which encoding/json cannot represent for float64 directly.
type variableJSON struct {
	Dims   []string   `json:"dims"`
	Values []*float64 `json:"values"`
	Attrs  Attrs      `json:"attrs,omitempty"`
}

func (v Variable) MarshalJSON() ([]byte, error) {
	out := variableJSON{Dims: v.Dims, Attrs: v.Attrs, Values: make([]*float64, len(v.Values))}
	for i := range v.Values {
		if !math.IsNaN(v.Values[i]) {
			out.Values[i] = &v.Values[i]
		}
	}
	return json.Marshal(out)
}

func (v *Variable) UnmarshalJSON(data []byte) error {
	var in variableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v.Dims = in.Dims
	v.Attrs = in.Attrs
	v.Values = make([]float64, len(in.Values))
	for i, p := range in.Values {
		if p == nil {
			v.Values[i] = math.NaN()
		} else {
			v.Values[i] = *p
		}
	}
	return nil
}

// Dataset is one self-describing file: global attributes, named variables,
// and optional named sub-groups (e.g. instrument monitoring and status
// channels that carry their own time axes).
type Dataset struct {
	Attrs  Attrs                `json:"attrs,omitempty"`
	Vars   map[string]*Variable `json:"vars"`
	Groups map[string]*Dataset  `json:"groups,omitempty"`
}

// New returns an empty dataset ready for variables to be added.
func New() *Dataset {
	return &Dataset{
		Attrs: Attrs{},
		Vars:  map[string]*Variable{},
	}
}

// Time returns the dataset's time variable, or ErrTimeMissing.
func (d *Dataset) Time() (*Variable, error) {
	v, ok := d.Vars[TimeVar]
	if !ok {
		return nil, ErrTimeMissing
	}
	return v, nil
}

// TimeLen returns the length of the time axis, 0 when absent.
func (d *Dataset) TimeLen() int {
	v, ok := d.Vars[TimeVar]
	if !ok {
		return 0
	}
	return len(v.Values)
}

// TimeEpoch parses the epoch out of the time variable's units attribute.
func (d *Dataset) TimeEpoch() (time.Time, error) {
	v, err := d.Time()
	if err != nil {
		return time.Time{}, err
	}
	return ParseUnits(v.Attrs.String("units"))
}

// TimeInstants decodes the time variable into absolute instants.
func (d *Dataset) TimeInstants() ([]time.Time, error) {
	epoch, err := d.TimeEpoch()
	if err != nil {
		return nil, err
	}
	v := d.Vars[TimeVar]
	out := make([]time.Time, len(v.Values))
	for i, sec := range v.Values {
		out[i] = addSeconds(epoch, sec)
	}
	return out, nil
}

// RebaseTime re-expresses the time variable against a new epoch without
// changing the instants it describes. The units attribute is rewritten using
// the given layout.
func (d *Dataset) RebaseTime(epoch time.Time, layout string) error {
	instants, err := d.TimeInstants()
	if err != nil {
		return err
	}
	v := d.Vars[TimeVar]
	for i, t := range instants {
		v.Values[i] = t.Sub(epoch).Seconds()
	}
	if v.Attrs == nil {
		v.Attrs = Attrs{}
	}
	v.Attrs["units"] = FormatUnits(epoch, layout)
	return nil
}

// SortByTime reorders all record variables so the time axis is ascending.
// The sort is stable: records with equal timestamps keep their input order.
func (d *Dataset) SortByTime() error {
	tv, err := d.Time()
	if err != nil {
		return err
	}
	n := len(tv.Values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return tv.Values[idx[a]] < tv.Values[idx[b]] })
	d.applySelection(idx)
	return nil
}

// DedupTime drops records whose timestamp repeats an earlier record, keeping
// the first occurrence. It builds a new selection in a single pass rather
// than mutating the axis while walking it. Returns the number of records
// removed. Assumes the axis is already sorted.
func (d *Dataset) DedupTime() (int, error) {
	tv, err := d.Time()
	if err != nil {
		return 0, err
	}
	idx := make([]int, 0, len(tv.Values))
	for i := range tv.Values {
		if i > 0 && tv.Values[i] == tv.Values[i-1] {
			continue
		}
		idx = append(idx, i)
	}
	removed := len(tv.Values) - len(idx)
	if removed > 0 {
		d.applySelection(idx)
	}
	return removed, nil
}

// SliceTime keeps only records whose instant falls in the half-open window
// [from, to).
func (d *Dataset) SliceTime(from, to time.Time) error {
	instants, err := d.TimeInstants()
	if err != nil {
		return err
	}
	idx := make([]int, 0, len(instants))
	for i, t := range instants {
		if !t.Before(from) && t.Before(to) {
			idx = append(idx, i)
		}
	}
	d.applySelection(idx)
	return nil
}

// MaskWhere marks every record failing keep(value) for the named variable as
// missing across all record variables except the time axis itself. The
// record count and time index are preserved. Returns the number of records
// masked.
func (d *Dataset) MaskWhere(name string, keep func(float64) bool) (int, error) {
	target, ok := d.Vars[name]
	if !ok {
		return 0, fmt.Errorf("variable %q not found", name)
	}
	n := d.TimeLen()
	if n == 0 {
		return 0, nil
	}
	masked := 0
	for i := 0; i < n && i < len(target.Values); i++ {
		if keep(target.Values[i]) {
			continue
		}
		masked++
		for vname, v := range d.Vars {
			if vname == TimeVar || !v.IsRecord() {
				continue
			}
			w := v.rowWidth(n)
			for j := i * w; j < (i+1)*w && j < len(v.Values); j++ {
				v.Values[j] = math.NaN()
			}
		}
	}
	return masked, nil
}

// NonMissing counts records of the named variable that are not NaN.
func (d *Dataset) NonMissing(name string) int {
	v, ok := d.Vars[name]
	if !ok {
		return 0
	}
	count := 0
	for _, x := range v.Values {
		if !math.IsNaN(x) {
			count++
		}
	}
	return count
}

// applySelection rebuilds every record variable from the given row indices.
func (d *Dataset) applySelection(idx []int) {
	n := d.TimeLen()
	for _, v := range d.Vars {
		if !v.IsRecord() {
			continue
		}
		w := v.rowWidth(n)
		out := make([]float64, 0, len(idx)*w)
		for _, i := range idx {
			start := i * w
			end := start + w
			if end > len(v.Values) {
				break
			}
			out = append(out, v.Values[start:end]...)
		}
		v.Values = out
	}
}

// Concat concatenates datasets along the time dimension. Time values are
// rebased onto the first part's epoch so that mixed-epoch inputs concatenate
// correctly. Record variables absent from a part are NaN-filled for that
// part's records; non-record variables and global attributes are taken from
// the first part. Groups are not carried through concatenation.
func Concat(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, errors.New("concat: no datasets")
	}

	baseEpoch, err := parts[0].TimeEpoch()
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}

	out := New()
	for k, val := range parts[0].Attrs {
		out.Attrs[k] = val
	}

	// Collect the union of record variables and their row widths.
	widths := map[string]int{}
	order := []string{}
	for _, p := range parts {
		n := p.TimeLen()
		for name, v := range p.Vars {
			if name == TimeVar || !v.IsRecord() {
				continue
			}
			if _, seen := widths[name]; !seen {
				widths[name] = v.rowWidth(n)
				order = append(order, name)
			}
		}
	}
	sort.Strings(order)

	total := 0
	for _, p := range parts {
		total += p.TimeLen()
	}

	timeOut := &Variable{Dims: []string{TimeVar}, Values: make([]float64, 0, total), Attrs: Attrs{
		"units": FormatUnits(baseEpoch, UnitsLayoutISO),
	}}
	for _, p := range parts {
		epoch, err := p.TimeEpoch()
		if err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
		offset := epoch.Sub(baseEpoch).Seconds()
		for _, sec := range p.Vars[TimeVar].Values {
			timeOut.Values = append(timeOut.Values, sec+offset)
		}
	}
	out.Vars[TimeVar] = timeOut

	for _, name := range order {
		w := widths[name]
		merged := &Variable{Values: make([]float64, 0, total*w)}
		for _, p := range parts {
			n := p.TimeLen()
			v, ok := p.Vars[name]
			if !ok {
				merged.Values = append(merged.Values, nanRows(n*w)...)
				continue
			}
			if merged.Dims == nil {
				merged.Dims = v.Dims
				merged.Attrs = v.Attrs
			}
			merged.Values = append(merged.Values, v.Values...)
		}
		out.Vars[name] = merged
	}

	// Coordinate (non-record) variables come from the first part that has them.
	for _, p := range parts {
		for name, v := range p.Vars {
			if v.IsRecord() || name == TimeVar {
				continue
			}
			if _, exists := out.Vars[name]; !exists {
				out.Vars[name] = v
			}
		}
	}

	return out, nil
}

func nanRows(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// addSeconds applies a float second offset to an instant, preserving
// sub-second precision to the millisecond.
func addSeconds(t time.Time, sec float64) time.Time {
	return t.Add(time.Duration(math.Round(sec*1000)) * time.Millisecond)
}
