// Package filter wires the compiler, evaluator and document projector
// together into the engine's single external operation: run a query
// against a queue partition and return a page of matching jobs.
package filter

import (
	"context"
	"time"

	"github.com/bargom/jobfilter/internal/jobfilter/compiler"
	"github.com/bargom/jobfilter/internal/jobfilter/eval"
	"github.com/bargom/jobfilter/internal/jobfilter/project"
	"github.com/bargom/jobfilter/internal/jobfilter/value"
	"github.com/bargom/jobfilter/internal/scheduler/repository"
	"github.com/bargom/jobfilter/pkg/logging"
)

// CursorDone is the sentinel Result.Cursor takes when the underlying
// iterator has been fully consumed and there are no further matches to
// page through.
const CursorDone = -1

// Result is the shape returned by a filter call: the page of matching
// jobs in queue-iterator order, plus enough bookkeeping to resume.
type Result struct {
	Cursor int             `json:"cursor"`
	Total  int             `json:"total"`
	Count  int             `json:"count"`
	Jobs   []repository.Job `json:"jobs"`
}

// Driver runs compiled queries against an Iterator's stream, producing
// windows of matches. It holds no per-call state — the same Driver is
// safe to reuse, and to call concurrently, across every filter request
// the service handles.
type Driver struct {
	evaluator *eval.Evaluator
	log       *logging.Logger
}

// New builds a Driver with the given evaluator configuration and
// logger. A nil logger discards log output.
func New(cfg eval.Config, log *logging.Logger) *Driver {
	return &Driver{evaluator: eval.New(cfg), log: log}
}

// Filter compiles query once, then scans it streams from it, returning
// the first count matches starting after the cursor'th match already
// seen by a prior call. cursor is the number of matches to skip, not a
// byte or row offset into the raw stream — a document that fails to
// evaluate does not consume a cursor slot, since it never matched.
func (d *Driver) Filter(ctx context.Context, it Iterator, query value.Value, cursor, count int) (Result, error) {
	node, err := compiler.Compile(query)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	var total int
	var matched int
	var jobs []repository.Job
	exhausted := false

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		job, ok, err := it.Next(ctx)
		if err != nil {
			return Result{}, compiler.NewIteratorError(err.Error())
		}
		if !ok {
			exhausted = true
			break
		}
		total++

		doc := project.Project(job)
		isMatch, evalErr := d.evaluator.Match(doc, node)
		if evalErr != nil {
			d.warnEval(job.ID, evalErr)
			continue
		}
		if !isMatch {
			continue
		}

		if matched < cursor {
			matched++
			continue
		}
		jobs = append(jobs, *job)
		matched++
		if count > 0 && len(jobs) >= count {
			break
		}
	}

	nextCursor := matched
	if exhausted {
		nextCursor = CursorDone
	}

	d.logSummary(total, len(jobs), time.Since(start))

	return Result{
		Cursor: nextCursor,
		Total:  total,
		Count:  len(jobs),
		Jobs:   jobs,
	}, nil
}

func (d *Driver) warnEval(jobID string, err error) {
	if d.log == nil {
		return
	}
	d.log.Warn("job filter: document evaluation failed, treating as non-matching",
		"job_id", jobID, "reason", err)
}

func (d *Driver) logSummary(total, count int, elapsed time.Duration) {
	if d.log == nil {
		return
	}
	d.log.Info("job filter: scan complete",
		"total", total, "count", count, "elapsed_ms", elapsed.Milliseconds())
}
