package filter

import (
	"context"
	"fmt"

	"github.com/bargom/jobfilter/internal/scheduler/repository"
)

// Iterator is the queue collaborator contract the driver consumes: a
// forward-only stream of raw job records for one queue partition.
// Next returns (job, true, nil) for each record, (nil, false, nil) at
// end of stream, and a non-nil error on a transport failure. The
// driver returns such an error as a FilterError of type ErrorIterator
// carrying the original error's message; the original error value
// itself is not wrapped.
type Iterator interface {
	Next(ctx context.Context) (*repository.Job, bool, error)
	Close() error
}

// repositoryPageSize bounds how many rows RepositoryIterator pulls per
// round trip to the backing store.
const repositoryPageSize = 100

// RepositoryIterator adapts a repository.JobRepository's offset-paged
// ListJobs into the Iterator contract, fetching pages lazily as the
// driver consumes them.
type RepositoryIterator struct {
	repo   repository.JobRepository
	filter repository.JobFilter

	page    []repository.Job
	pageIdx int
	offset  int
	done    bool
}

// NewRepositoryIterator builds an Iterator over jobs matching base,
// opaquely paginating underneath regardless of how many records the
// underlying query ultimately returns.
func NewRepositoryIterator(repo repository.JobRepository, base repository.JobFilter) *RepositoryIterator {
	base.Limit = repositoryPageSize
	base.Offset = 0
	return &RepositoryIterator{repo: repo, filter: base}
}

func (it *RepositoryIterator) Next(ctx context.Context) (*repository.Job, bool, error) {
	for {
		if it.pageIdx < len(it.page) {
			job := it.page[it.pageIdx]
			it.pageIdx++
			return &job, true, nil
		}
		if it.done {
			return nil, false, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		it.filter.Offset = it.offset
		page, err := it.repo.ListJobs(ctx, it.filter)
		if err != nil {
			return nil, false, fmt.Errorf("list jobs page at offset %d: %w", it.offset, err)
		}
		it.page = page
		it.pageIdx = 0
		it.offset += len(page)
		if len(page) < repositoryPageSize {
			it.done = true
		}
		if len(page) == 0 {
			return nil, false, nil
		}
	}
}

func (it *RepositoryIterator) Close() error { return nil }
