package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bargom/jobfilter/internal/jobfilter/eval"
	"github.com/bargom/jobfilter/internal/jobfilter/value"
	"github.com/bargom/jobfilter/internal/scheduler/repository"
)

// sliceIterator is a fixed in-memory Iterator for exercising the
// driver's windowing and cancellation behavior without a live queue.
type sliceIterator struct {
	jobs []repository.Job
	idx  int
	err  error // returned from the Next call at failAt, if set
	failAt int
}

func (it *sliceIterator) Next(ctx context.Context) (*repository.Job, bool, error) {
	if it.err != nil && it.idx == it.failAt {
		return nil, false, it.err
	}
	if it.idx >= len(it.jobs) {
		return nil, false, nil
	}
	job := it.jobs[it.idx]
	it.idx++
	return &job, true, nil
}

func (it *sliceIterator) Close() error { return nil }

func jobWithType(id, taskType string) repository.Job {
	return repository.Job{ID: id, TaskType: taskType, CreatedAt: time.UnixMilli(1000)}
}

func queryObj(pairs ...any) value.Value {
	o := value.NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Obj().Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return o
}

func TestFilterReturnsMatchesInQueueOrder(t *testing.T) {
	jobs := []repository.Job{
		jobWithType("a", "send-email"),
		jobWithType("b", "resize-image"),
		jobWithType("c", "send-email"),
	}
	it := &sliceIterator{jobs: jobs}
	q := queryObj("name", value.String("send-email"))

	d := New(eval.DefaultConfig(), nil)
	res, err := d.Filter(context.Background(), it, q, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "a", res.Jobs[0].ID)
	assert.Equal(t, "c", res.Jobs[1].ID)
	assert.Equal(t, CursorDone, res.Cursor)
}

func TestFilterCursorPagination(t *testing.T) {
	jobs := []repository.Job{
		jobWithType("a", "send-email"),
		jobWithType("b", "send-email"),
		jobWithType("c", "send-email"),
	}
	q := queryObj("name", value.String("send-email"))
	d := New(eval.DefaultConfig(), nil)

	first, err := d.Filter(context.Background(), &sliceIterator{jobs: jobs}, q, 0, 2)
	require.NoError(t, err)
	require.Len(t, first.Jobs, 2)
	assert.Equal(t, "a", first.Jobs[0].ID)
	assert.Equal(t, "b", first.Jobs[1].ID)
	assert.Equal(t, 2, first.Cursor)

	second, err := d.Filter(context.Background(), &sliceIterator{jobs: jobs}, q, first.Cursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Jobs, 1)
	assert.Equal(t, "c", second.Jobs[0].ID)
	assert.Equal(t, CursorDone, second.Cursor)
}

func TestFilterIteratorErrorPropagates(t *testing.T) {
	it := &sliceIterator{
		jobs:   []repository.Job{jobWithType("a", "x")},
		err:    errors.New("redis unavailable"),
		failAt: 1,
	}
	d := New(eval.DefaultConfig(), nil)
	_, err := d.Filter(context.Background(), it, value.Missing(), 0, 10)
	require.Error(t, err)
}

func TestFilterCompileErrorSurfacesSynchronously(t *testing.T) {
	it := &sliceIterator{jobs: []repository.Job{jobWithType("a", "x")}}
	d := New(eval.DefaultConfig(), nil)
	bad := queryObj("name", queryObj("$bogus", value.Int(1)))
	_, err := d.Filter(context.Background(), it, bad, 0, 10)
	require.Error(t, err)
	assert.Equal(t, 0, it.idx) // no document was ever consumed
}

func TestFilterEmptyQueryMatchesAll(t *testing.T) {
	jobs := []repository.Job{jobWithType("a", "x"), jobWithType("b", "y")}
	it := &sliceIterator{jobs: jobs}
	d := New(eval.DefaultConfig(), nil)
	res, err := d.Filter(context.Background(), it, value.Missing(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestFilterCancellation(t *testing.T) {
	jobs := []repository.Job{jobWithType("a", "x")}
	it := &sliceIterator{jobs: jobs}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(eval.DefaultConfig(), nil)
	_, err := d.Filter(ctx, it, value.Missing(), 0, 10)
	require.Error(t, err)
}
