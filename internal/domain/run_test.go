package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityRunCountersBalance(t *testing.T) {
	t.Parallel()

	run := NewQualityRun("run-1", time.Unix(0, 0))
	require.NoError(t, run.RecordAccepted("https://a.example/1", 10*time.Millisecond))
	require.NoError(t, run.RecordDuplicate(5*time.Millisecond))
	require.NoError(t, run.RecordRejected(RejectTooShort, 5*time.Millisecond))
	require.NoError(t, run.RecordRejected(RejectTooShort, 0))

	run.Close(time.Unix(10, 0), nil)

	s := run.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, s.Total, s.Valid+s.Duplicate+s.Rejected)
	assert.Equal(t, 2, s.RejectReasons["too_short"])
	assert.Equal(t, 5*time.Millisecond, s.MeanProcessing)
	assert.Equal(t, RunSuccess, s.Status)
}

func TestQualityRunImmutableAfterClose(t *testing.T) {
	t.Parallel()

	run := NewQualityRun("run-2", time.Now())
	run.Close(time.Now(), nil)

	assert.ErrorIs(t, run.RecordAccepted("https://a.example", 0), ErrRunClosed)
	assert.ErrorIs(t, run.RecordDuplicate(0), ErrRunClosed)
	assert.ErrorIs(t, run.RecordRejected(RejectLowQuality, 0), ErrRunClosed)
	assert.Equal(t, 0, run.Total())
}

func TestQualityRunRollback(t *testing.T) {
	t.Parallel()

	run := NewQualityRun("run-3", time.Now())
	require.NoError(t, run.RecordAccepted("https://a.example/keep", 0))

	cp := run.Checkpoint()
	require.NoError(t, run.RecordAccepted("https://a.example/drop", 0))
	require.NoError(t, run.RecordRejected(RejectMissingURL, 0))
	require.NoError(t, run.RecordDuplicate(0))

	run.Rollback(cp)

	assert.Equal(t, 1, run.Total())
	assert.True(t, run.Seen("https://a.example/keep"))
	assert.False(t, run.Seen("https://a.example/drop"))
	assert.Empty(t, run.Summary().RejectReasons)
}

func TestQualityRunStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		batches int
		failed  int
		cause   error
		want    RunStatus
	}{
		"clean":         {batches: 3, want: RunSuccess},
		"some failed":   {batches: 3, failed: 1, want: RunPartial},
		"all failed":    {batches: 2, failed: 2, want: RunFailed},
		"storage error": {batches: 1, cause: &StorageError{Op: "upsert", Err: errors.New("boom")}, want: RunFailed},
		"cancelled":     {batches: 1, cause: context.Canceled, want: RunPartial},
		"no batches":    {want: RunSuccess},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			run := NewQualityRun(name, time.Now())
			for i := 0; i < tc.batches; i++ {
				run.RecordBatch(i < tc.failed)
			}
			run.Close(time.Now(), tc.cause)
			assert.Equal(t, tc.want, run.Status())
		})
	}
}

func TestDecisionErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Accepted().Err("u"))

	var vr *ValidationRejection
	require.ErrorAs(t, Rejected(RejectTooLong).Err("u"), &vr)
	assert.Equal(t, RejectTooLong, vr.Reason)

	var dr *DuplicateRejection
	require.ErrorAs(t, Duplicate().Err("u"), &dr)
	assert.Equal(t, "rejected(too_long)", Rejected(RejectTooLong).String())
}

func TestBucketFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, QualityExcellent, BucketFor(0.9))
	assert.Equal(t, QualityGood, BucketFor(0.75))
	assert.Equal(t, QualityFair, BucketFor(0.5))
	assert.Equal(t, QualityPoor, BucketFor(0.49))
}
