package compat

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIncompatible is returned when the converter is known to emit a model the
// target runtime cannot load.
var ErrIncompatible = errors.New("converter and runtime versions are incompatible")

// Status is the outcome of a compatibility check.
type Status string

const (
	// StatusVerified means a matrix entry covers the pair.
	StatusVerified Status = "verified"

	// StatusUnverified means no entry covers the pair, but nothing suggests a problem.
	StatusUnverified Status = "unverified"

	// StatusIncompatible means the converter is newer than the runtime.
	StatusIncompatible Status = "incompatible"

	// StatusUnknown means one of the versions could not be determined.
	StatusUnknown Status = "unknown"
)

// Entry is a known-good pairing of converter framework and mobile runtime.
type Entry struct {
	Name      string
	Framework string
	Runtime   string
	Setup     []string
	Notes     string
}

// Matrix is the version-compatibility table.
type Matrix []Entry

// Verdict describes how a framework/runtime pair relates to the matrix.
type Verdict struct {
	Status    Status
	Framework string
	Runtime   string
	Entry     *Entry
	Reason    string
}

// Err returns ErrIncompatible for incompatible verdicts and nil otherwise.
func (v Verdict) Err() error {
	if v.Status != StatusIncompatible {
		return nil
	}
	return fmt.Errorf("%w: framework %s, runtime %s: %s", ErrIncompatible, v.Framework, v.Runtime, v.Reason)
}

// DefaultMatrix returns the built-in table.
func DefaultMatrix() Matrix {
	return Matrix{
		{
			Name:      "tf213",
			Framework: "2.13.0",
			Runtime:   "2.16.1",
			Setup:     []string{"pip install tensorflow==2.13.0"},
			Notes:     "Last resort when newer converters keep emitting unsupported op versions.",
		},
		{
			Name:      "tf216",
			Framework: "2.16.1",
			Runtime:   "2.16.1",
			Setup:     []string{"pip install --upgrade ml_dtypes", "pip install tensorflow==2.16.1"},
			Notes:     "Upgrade ml_dtypes first on Colab or the JAX import fails. Restart the runtime after installing.",
		},
		{
			Name:      "tf217",
			Framework: "2.17.0",
			Runtime:   "2.16.1",
			Setup:     []string{"pip install tensorflow==2.17.0"},
			Notes:     "Output still loads on the 2.16 runtime.",
		},
		{
			Name:      "tf218",
			Framework: "2.18.0",
			Runtime:   "2.18.1",
			Setup:     []string{"pip install tensorflow==2.18.0"},
			Notes:     "Requires the Android app to use tensorflow-lite 2.18.1. Restart the runtime after installing.",
		},
	}
}

// With returns a matrix with extra entries. Entries sharing a name replace the
// existing ones.
func (m Matrix) With(extra ...Entry) Matrix {
	out := make(Matrix, 0, len(m)+len(extra))
	index := make(map[string]int, len(m))
	for _, e := range m {
		index[e.Name] = len(out)
		out = append(out, e)
	}
	for _, e := range extra {
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}

// Lookup returns the entry with the given name.
func (m Matrix) Lookup(name string) (Entry, bool) {
	for _, e := range m {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns entry names in sorted order.
func (m Matrix) Names() []string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Check classifies a framework/runtime pair.
// A pair is verified when an entry matches both major.minor releases. A
// framework newer than the runtime without an entry is incompatible: newer
// converters emit builtin op versions (FULLY_CONNECTED v12 and friends) that
// older runtimes reject.
func (m Matrix) Check(framework, runtime string) Verdict {
	verdict := Verdict{Framework: framework, Runtime: runtime}

	fv, ferr := ParseVersion(framework)
	rv, rerr := ParseVersion(runtime)
	if ferr != nil || rerr != nil {
		verdict.Status = StatusUnknown
		verdict.Reason = "framework or runtime version is not known"
		return verdict
	}

	for i := range m {
		ef, err := ParseVersion(m[i].Framework)
		if err != nil {
			continue
		}
		er, err := ParseVersion(m[i].Runtime)
		if err != nil {
			continue
		}
		if ef.SameRelease(fv) && er.SameRelease(rv) {
			entry := m[i]
			verdict.Status = StatusVerified
			verdict.Entry = &entry
			verdict.Reason = fmt.Sprintf("listed as %s", entry.Name)
			return verdict
		}
	}

	if fv.NewerRelease(rv) {
		verdict.Status = StatusIncompatible
		verdict.Reason = "the converter emits op versions the runtime does not support"
		return verdict
	}

	verdict.Status = StatusUnverified
	verdict.Reason = "no matrix entry covers this pair"
	return verdict
}

// ForRuntime returns entries whose runtime matches runtime's release, in
// matrix order.
func (m Matrix) ForRuntime(runtime string) []Entry {
	rv, err := ParseVersion(runtime)
	if err != nil {
		return nil
	}

	var out []Entry
	for _, e := range m {
		er, err := ParseVersion(e.Runtime)
		if err == nil && er.SameRelease(rv) {
			out = append(out, e)
		}
	}
	return out
}
