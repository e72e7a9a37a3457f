package export

import (
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

// Status is the outcome of one tile.
type Status int

const (
	Success Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{Success, Skipped, Failed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return sserrors.New(sserrors.ErrCodeInvalidInput, "unknown status %q", b)
}

// Result reports one tile of an export run.
type Result struct {
	RunID  string     `json:"run_id"`
	Index  grid.Index `json:"index"`
	Side   names.Side `json:"side"`
	Status Status     `json:"status"`
	Path   string     `json:"path,omitempty"`
	Err    error      `json:"-"`
}

// Message returns the failure detail, or "".
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Written  int           `json:"written"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Failures []Result      `json:"failures,omitempty"`
	Paths    []string      `json:"paths,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Total returns the number of tiles reported.
func (s Summary) Total() int { return s.Written + s.Failed + s.Skipped }

// OK reports whether no tile failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Summarize counts results by status and collects the failures and the
// written paths in report order.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if s.RunID == "" {
			s.RunID = r.RunID
		}
		switch r.Status {
		case Success:
			s.Written++
			s.Paths = append(s.Paths, r.Path)
		case Skipped:
			s.Skipped++
		case Failed:
			s.Failed++
			s.Failures = append(s.Failures, r)
		}
	}
	return s
}
