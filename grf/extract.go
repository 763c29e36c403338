package grf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// OutcomeStatus classifies the result of one entry during a bulk
// extraction.
type OutcomeStatus uint8

const (
	StatusExtracted OutcomeStatus = iota
	StatusFailed
	StatusSkipped
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusExtracted:
		return "extracted"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Outcome records what happened to a single entry.
type Outcome struct {
	Path   string
	Status OutcomeStatus
	// Reason explains failures and skips. Empty for extracted
	// entries.
	Reason string
}

// Report summarizes a bulk extraction. One failed entry never aborts
// the run; the report carries an outcome per entry instead.
type Report struct {
	// RunID uniquely identifies this extraction run in logs and
	// audit output.
	RunID   string
	Archive string

	mu       sync.Mutex
	outcomes []Outcome
	counts   [3]int
}

func newReport(archive string) *Report {
	return &Report{RunID: uuid.NewString(), Archive: archive}
}

func (r *Report) add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.counts[o.Status]++
}

// Outcomes returns a copy of the per-entry results.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Extracted returns the number of entries written to disk.
func (r *Report) Extracted() int { return r.count(StatusExtracted) }

// Failed returns the number of entries that could not be recovered.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of entries deliberately not written,
// such as directories and encrypted entries.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

func (r *Report) count(s OutcomeStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[s]
}

type extractConfig struct {
	workers int
}

// ExtractOption configures ExtractAll.
type ExtractOption func(*extractConfig)

// WithWorkers bounds the number of entries extracted concurrently.
// Defaults to the number of CPUs.
func WithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// ExtractAll writes every recoverable entry under dest, preserving the
// normalized entry paths. Directories and encrypted entries are
// skipped, unreadable entries are reported as failed, and the run
// continues past both. Cancelling ctx stops the run between entries;
// the report still covers everything processed up to that point, and
// the context error is returned alongside it.
func (a *Archive) ExtractAll(ctx context.Context, dest string, opts ...ExtractOption) (*Report, error) {
	cfg := extractConfig{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&cfg)
	}

	report := newReport(a.path)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	for _, e := range a.entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.add(a.extractOne(e, dest))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (a *Archive) extractOne(e *Entry, dest string) Outcome {
	switch {
	case e.Type == EntryDirectory:
		return Outcome{Path: e.Path, Status: StatusSkipped, Reason: "directory"}
	case e.Encrypted():
		return Outcome{Path: e.Path, Status: StatusSkipped, Reason: "encrypted"}
	case !filepath.IsLocal(filepath.FromSlash(e.Path)):
		return Outcome{Path: e.Path, Status: StatusFailed, Reason: "path escapes destination"}
	}

	data, err := a.ReadEntry(e)
	if err != nil {
		a.log().Warn("entry unrecoverable", "path", e.Path, "error", err)
		return Outcome{Path: e.Path, Status: StatusFailed, Reason: err.Error()}
	}

	target := filepath.Join(dest, filepath.FromSlash(e.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Outcome{Path: e.Path, Status: StatusFailed, Reason: err.Error()}
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return Outcome{Path: e.Path, Status: StatusFailed, Reason: err.Error()}
	}
	return Outcome{Path: e.Path, Status: StatusExtracted}
}

// ExtractFile extracts a single entry to the exact destination path.
func (a *Archive) ExtractFile(path, dest string) error {
	data, err := a.ReadFile(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("grf: extract %s: %w", path, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("grf: extract %s: %w", path, err)
	}
	return nil
}
