// Package fingerprint computes streaming content digests for asset
// trees and classifies a tree against a trusted baseline. The engine
// only sees a Tree, an abstract walk over named byte streams, so any
// source that can enumerate paths and open readers can be audited:
// extracted directories, archive containers, or anything else.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// Opener opens the content of one tree member for reading.
type Opener func() (io.ReadCloser, error)

// WalkFunc receives one tree member. The open callback is invoked only
// if the walk consumer decides to read the content.
type WalkFunc func(path string, open Opener) error

// Tree is a source of named byte streams. Walk visits every member,
// stopping early if fn returns an error. Paths yielded by Walk are
// expected in NormalizePath form.
type Tree interface {
	Walk(ctx context.Context, fn WalkFunc) error
}

// Record is one baseline line: a normalized path, its content digest,
// and its size in bytes.
type Record struct {
	Path   string
	Digest digest.Digest
	Size   int64
}

// Lookup resolves baseline records by normalized path.
type Lookup interface {
	Get(path string) (Record, bool)
}

// Status classifies one path of a compared tree.
type Status uint8

const (
	// StatusIdentical means the digest matches the baseline record.
	StatusIdentical Status = iota
	// StatusModified means the path exists in the baseline with a
	// different digest.
	StatusModified
	// StatusNew means the baseline has no record for the path.
	StatusNew
	// StatusFailed means the content could not be read or hashed.
	StatusFailed
	// StatusSkipped means the tree deliberately withheld the content,
	// such as an encrypted archive entry.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusIdentical:
		return "identical"
	case StatusModified:
		return "modified"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "new"
	}
}

// Result is the classification of one path.
type Result struct {
	Path   string
	Status Status
	Digest digest.Digest
	Size   int64
	// Baseline holds the matching record digest for modified paths.
	Baseline digest.Digest
	// Reason explains failed and skipped paths. Empty otherwise.
	Reason string
}

// Issue records a tree member that produced no digest during a bulk
// run: unreadable content or content deliberately withheld.
type Issue struct {
	Path   string
	Status Status // StatusFailed or StatusSkipped
	Reason string
}

// skipError is returned by Openers for members whose content is
// deliberately unavailable.
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	return "fingerprint: skipped: " + e.reason
}

// SkipEntry returns an error an Opener can use to have its member
// reported as skipped, with the given reason, instead of failed.
func SkipEntry(reason string) error {
	return &skipError{reason: reason}
}

// Engine hashes trees and compares them against baselines. The zero
// value is not usable; construct with NewEngine.
type Engine struct {
	alg     digest.Algorithm
	workers int
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAlgorithm selects the digest algorithm. Defaults to the
// canonical algorithm (sha256).
func WithAlgorithm(alg digest.Algorithm) Option {
	return func(e *Engine) {
		if alg.Available() {
			e.alg = alg
		}
	}
}

// WithWorkers bounds concurrent hashing. Defaults to the number of
// CPUs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		alg:     digest.Canonical,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Fingerprint digests r in fixed-size chunks and returns the digest
// and the number of bytes consumed. Content of any size streams
// through without buffering it whole.
func (e *Engine) Fingerprint(r io.Reader) (digest.Digest, int64, error) {
	d := e.alg.Digester()
	n, err := io.Copy(d.Hash(), r)
	if err != nil {
		return "", n, fmt.Errorf("fingerprint: %w", err)
	}
	return d.Digest(), n, nil
}

// job is a tree member captured during the walk so hashing can run in
// parallel afterwards.
type job struct {
	path string
	open Opener
}

func collect(ctx context.Context, tree Tree) ([]job, error) {
	var jobs []job
	err := tree.Walk(ctx, func(path string, open Opener) error {
		jobs = append(jobs, job{path: NormalizePath(path), open: open})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fingerprint: walk: %w", err)
	}
	return jobs, nil
}

// hashAll digests every job with bounded parallelism and hands each
// outcome to exactly one of emit or fail, from multiple goroutines.
// A member that cannot be opened or hashed is an outcome, not a
// reason to abandon the rest of the batch; only context cancellation
// stops the group early. On cancellation the outcomes delivered so
// far remain valid.
func (e *Engine) hashAll(ctx context.Context, jobs []job, emit func(Record), fail func(Issue)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rc, err := j.open()
			if err != nil {
				fail(e.issueFor(j.path, err))
				return nil
			}
			dig, size, err := e.Fingerprint(rc)
			rc.Close()
			if err != nil {
				fail(e.issueFor(j.path, err))
				return nil
			}
			emit(Record{Path: j.path, Digest: dig, Size: size})
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) issueFor(path string, err error) Issue {
	var skip *skipError
	if errors.As(err, &skip) {
		e.log().Debug("entry skipped", "path", path, "reason", skip.reason)
		return Issue{Path: path, Status: StatusSkipped, Reason: skip.reason}
	}
	e.log().Warn("entry failed", "path", path, "error", err)
	return Issue{Path: path, Status: StatusFailed, Reason: err.Error()}
}

// BuildBaseline walks tree and returns one record per hashable
// member plus one issue per member that yielded no digest, both
// sorted by path. The same tree content always yields the same
// records, so a rebuilt baseline can be compared byte for byte.
func (e *Engine) BuildBaseline(ctx context.Context, tree Tree) ([]Record, []Issue, error) {
	jobs, err := collect(ctx, tree)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	records := make([]Record, 0, len(jobs))
	var issues []Issue
	err = e.hashAll(ctx, jobs, func(rec Record) {
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
	}, func(iss Issue) {
		mu.Lock()
		issues = append(issues, iss)
		mu.Unlock()
	})

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	sort.Slice(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	if err != nil {
		return records, issues, err
	}
	e.log().Info("baseline built", "records", len(records), "issues", len(issues))
	return records, issues, nil
}

// Compare walks tree, digests every member, and classifies each path
// against base: identical, modified, or new. Members that yielded no
// digest appear as failed or skipped results with a reason, so one
// unreadable entry never hides the rest of the run. Results are
// sorted by path. Removed baseline paths are not reported; comparison
// is from the tree's point of view.
func (e *Engine) Compare(ctx context.Context, tree Tree, base Lookup) ([]Result, error) {
	jobs, err := collect(ctx, tree)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make([]Result, 0, len(jobs))
	err = e.hashAll(ctx, jobs, func(rec Record) {
		res := Result{Path: rec.Path, Digest: rec.Digest, Size: rec.Size}
		ref, ok := base.Get(rec.Path)
		switch {
		case !ok:
			res.Status = StatusNew
		case ref.Digest == rec.Digest:
			res.Status = StatusIdentical
		default:
			res.Status = StatusModified
			res.Baseline = ref.Digest
		}
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}, func(iss Issue) {
		mu.Lock()
		results = append(results, Result{Path: iss.Path, Status: iss.Status, Reason: iss.Reason})
		mu.Unlock()
	})

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	if err != nil {
		return results, err
	}
	return results, nil
}
