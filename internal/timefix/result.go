package timefix

// ErrKind tags the failure mode of one corrected file, so callers handle
// each outcome explicitly instead of pattern-matching on error strings.
type ErrKind int

const (
	// ErrNone means the file was corrected and written.
	ErrNone ErrKind = iota

	// ErrAnchorUnavailable means the file's modification time could not be
	// read; no output is produced for this file.
	ErrAnchorUnavailable

	// ErrTimeVariableMissing means the root time variable is absent or
	// empty; the file cannot be corrected.
	ErrTimeVariableMissing

	// ErrProcessing covers any other failure while decoding, adjusting, or
	// writing one file.
	ErrProcessing
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "ok"
	case ErrAnchorUnavailable:
		return "anchor_unavailable"
	case ErrTimeVariableMissing:
		return "time_variable_missing"
	case ErrProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Result reports the outcome of correcting a single file. A batch run
// collects one Result per input file; failures never abort the batch.
type Result struct {
	Path    string
	NewPath string
	Kind    ErrKind
	Err     error

	// GroupWarnings lists sub-groups whose time variable was absent or
	// could not be adjusted. The group is left untouched but the file is
	// still written, so partial corrections are visible to the caller.
	GroupWarnings []string
}

// OK reports whether the file was corrected and written.
func (r Result) OK() bool { return r.Kind == ErrNone }
