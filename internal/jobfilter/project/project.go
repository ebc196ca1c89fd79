// Package project materializes a queryable Document view of a stored
// job, including computed virtual fields, for the expression evaluator
// to operate on.
package project

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/bargom/jobfilter/internal/jobfilter/value"
	"github.com/bargom/jobfilter/internal/scheduler/repository"
)

// Project converts a stored job record into the Document shape the
// query language evaluates against: raw fields plus virtuals computed
// from the struct's timestamps. Every virtual is computed here, when
// the document is built, whether or not a query references it.
func Project(job *repository.Job) value.Value {
	doc := value.NewObject()
	o := doc.Obj()

	o.Set("id", value.String(job.ID))
	o.Set("name", value.String(job.TaskType))
	o.Set("data", parseJSONField(job.Payload))
	o.Set("opts", optsValue(job))
	o.Set("attemptsMade", value.Int(int64(job.RetryCount)))
	o.Set("returnvalue", parseJSONField(job.Result))
	o.Set("failedReason", stringOrMissing(job.Error))
	o.Set("stacktrace", value.Missing())  // not modeled by the repository.Job struct
	o.Set("priority", value.Missing())    // not modeled by the repository.Job struct
	o.Set("progress", value.Missing())    // progress is updated out-of-band in the teacher's event bus, not stored on Job

	if job.ScheduledAt != nil {
		o.Set("timestamp", epochMillis(*job.ScheduledAt))
	} else {
		o.Set("timestamp", epochMillis(job.CreatedAt))
	}
	o.Set("processedOn", timeOrMissing(job.StartedAt))

	finishedAt := job.CompletedAt
	if finishedAt == nil {
		finishedAt = job.FailedAt
	}
	o.Set("finishedOn", timeOrMissing(finishedAt))

	o.Set("delay", delayValue(job))

	// Virtuals: Missing if any input is absent.
	o.Set("waitTime", durationVirtual(o, "processedOn", "timestamp"))
	o.Set("runtime", durationVirtual(o, "finishedOn", "processedOn"))
	o.Set("responseTime", durationVirtual(o, "finishedOn", "timestamp"))

	return doc
}

func parseJSONField(raw json.RawMessage) value.Value {
	if len(bytes.TrimSpace(raw)) == 0 {
		return value.Null()
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return value.Null()
	}
	return value.FromAny(v)
}

func optsValue(job *repository.Job) value.Value {
	o := value.NewObject()
	o.Obj().Set("maxRetries", value.Int(int64(job.MaxRetries)))
	if job.Timeout > 0 {
		o.Obj().Set("timeout", value.Int(job.Timeout.Milliseconds()))
	}
	if job.CronExpression != "" {
		o.Obj().Set("repeat", value.String(job.CronExpression))
	}
	for k, v := range job.Metadata {
		o.Obj().Set(k, value.FromAny(v))
	}
	return o
}

func stringOrMissing(s string) value.Value {
	if s == "" {
		return value.Missing()
	}
	return value.String(s)
}

func timeOrMissing(t *time.Time) value.Value {
	if t == nil {
		return value.Missing()
	}
	return epochMillis(*t)
}

func epochMillis(t time.Time) value.Value {
	return value.Int(t.UnixMilli())
}

// durationVirtual computes fieldA - fieldB (both epoch-millis integers
// already present on the object being built), resolving to Missing if
// either input is absent.
func durationVirtual(o *value.Object, fieldA, fieldB string) value.Value {
	a, aok := o.Get(fieldA)
	b, bok := o.Get(fieldB)
	if !aok || !bok || a.IsMissing() || b.IsMissing() {
		return value.Missing()
	}
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	if !aIsInt || !bIsInt {
		return value.Missing()
	}
	return value.Int(ai - bi)
}

func delayValue(job *repository.Job) value.Value {
	if job.ScheduledAt == nil {
		return value.Int(0)
	}
	delta := job.ScheduledAt.Sub(job.CreatedAt).Milliseconds()
	if delta < 0 {
		delta = 0
	}
	return value.Int(delta)
}
