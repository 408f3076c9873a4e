package domain

import (
	"context"
	"errors"
	"maps"
	"time"
)

// RunStatus is the terminal classification of a quality run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// QualityRun accumulates counters for one pipeline invocation.
// It is owned by a single goroutine and becomes immutable after Close.
type QualityRun struct {
	id        string
	startedAt time.Time
	endedAt   time.Time

	valid     int
	duplicate int
	rejected  int
	reasons   map[RejectReason]int

	batches       int
	failedBatches int
	processing    time.Duration

	status RunStatus
	errMsg string
	closed bool

	seen  map[string]struct{}
	order []string
}

// RunCheckpoint marks counters at a batch boundary so an abandoned batch can
// be undone.
type RunCheckpoint struct {
	valid, duplicate, rejected int
	reasons                    map[RejectReason]int
	processing                 time.Duration
	seen                       int
}

func NewQualityRun(id string, startedAt time.Time) *QualityRun {
	return &QualityRun{
		id:        id,
		startedAt: startedAt,
		reasons:   map[RejectReason]int{},
		status:    RunRunning,
		seen:      map[string]struct{}{},
	}
}

func (r *QualityRun) ID() string { return r.id }
func (r *QualityRun) Closed() bool { return r.closed }
func (r *QualityRun) Status() RunStatus { return r.status }
func (r *QualityRun) Total() int { return r.valid + r.duplicate + r.rejected }
func (r *QualityRun) Valid() int { return r.valid }
func (r *QualityRun) Duplicates() int { return r.duplicate }
func (r *QualityRun) Rejected() int { return r.rejected }
func (r *QualityRun) StartedAt() time.Time { return r.startedAt }

// Seen reports whether url was already counted in this run.
func (r *QualityRun) Seen(url string) bool {
	_, ok := r.seen[url]
	return ok
}

// RecordAccepted counts a valid article and remembers its url.
func (r *QualityRun) RecordAccepted(url string, took time.Duration) error {
	if r.closed {
		return ErrRunClosed
	}
	r.valid++
	r.processing += took
	r.markSeen(url)
	return nil
}

// RecordDuplicate counts a duplicate.
func (r *QualityRun) RecordDuplicate(took time.Duration) error {
	if r.closed {
		return ErrRunClosed
	}
	r.duplicate++
	r.processing += took
	return nil
}

// RecordRejected counts a rejection under its reason.
func (r *QualityRun) RecordRejected(reason RejectReason, took time.Duration) error {
	if r.closed {
		return ErrRunClosed
	}
	r.rejected++
	r.reasons[reason]++
	r.processing += took
	return nil
}

// RecordBatch counts one fetch batch and whether it failed.
func (r *QualityRun) RecordBatch(failed bool) {
	if r.closed {
		return
	}
	r.batches++
	if failed {
		r.failedBatches++
	}
}

func (r *QualityRun) markSeen(url string) {
	if url == "" {
		return
	}
	if _, ok := r.seen[url]; ok {
		return
	}
	r.seen[url] = struct{}{}
	r.order = append(r.order, url)
}

// Checkpoint snapshots the per-article counters.
func (r *QualityRun) Checkpoint() RunCheckpoint {
	return RunCheckpoint{
		valid:      r.valid,
		duplicate:  r.duplicate,
		rejected:   r.rejected,
		reasons:    maps.Clone(r.reasons),
		processing: r.processing,
		seen:       len(r.order),
	}
}

// Rollback restores counters and the seen set to cp.
func (r *QualityRun) Rollback(cp RunCheckpoint) {
	if r.closed {
		return
	}
	r.valid = cp.valid
	r.duplicate = cp.duplicate
	r.rejected = cp.rejected
	r.reasons = maps.Clone(cp.reasons)
	if r.reasons == nil {
		r.reasons = map[RejectReason]int{}
	}
	r.processing = cp.processing
	for _, url := range r.order[cp.seen:] {
		delete(r.seen, url)
	}
	r.order = r.order[:cp.seen]
}

// Close freezes the run and derives its status from cause and batch
// outcomes. A cancelled run is partial; any other cause fails it.
func (r *QualityRun) Close(endedAt time.Time, cause error) {
	if r.closed {
		return
	}
	r.endedAt = endedAt
	r.closed = true

	switch {
	case cause != nil && (errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded)):
		r.status = RunPartial
		r.errMsg = cause.Error()
	case cause != nil:
		r.status = RunFailed
		r.errMsg = cause.Error()
	case r.batches > 0 && r.failedBatches == r.batches:
		r.status = RunFailed
		r.errMsg = "all fetch batches failed"
	case r.failedBatches > 0:
		r.status = RunPartial
	default:
		r.status = RunSuccess
	}
}

// MeanProcessingTime is the average per-article processing duration.
func (r *QualityRun) MeanProcessingTime() time.Duration {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return r.processing / time.Duration(total)
}

// Summary returns a detached copy of the run for persistence and reporting.
func (r *QualityRun) Summary() RunSummary {
	reasons := make(map[string]int, len(r.reasons))
	for k, v := range r.reasons {
		reasons[string(k)] = v
	}
	return RunSummary{
		RunID:            r.id,
		StartedAt:        r.startedAt,
		EndedAt:          r.endedAt,
		Total:            r.Total(),
		Valid:            r.valid,
		Duplicate:        r.duplicate,
		Rejected:         r.rejected,
		RejectReasons:    reasons,
		BatchesAttempted: r.batches,
		BatchesFailed:    r.failedBatches,
		MeanProcessing:   r.MeanProcessingTime(),
		Status:           r.status,
		Error:            r.errMsg,
	}
}

// RunSummary is the persisted, read-only form of a QualityRun.
type RunSummary struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          time.Time      `json:"ended_at"`
	Total            int            `json:"total"`
	Valid            int            `json:"valid"`
	Duplicate        int            `json:"duplicate"`
	Rejected         int            `json:"rejected"`
	RejectReasons    map[string]int `json:"reject_reasons"`
	BatchesAttempted int            `json:"batches_attempted"`
	BatchesFailed    int            `json:"batches_failed"`
	MeanProcessing   time.Duration  `json:"mean_processing_ns"`
	Status           RunStatus      `json:"status"`
	Error            string         `json:"error,omitempty"`
}
