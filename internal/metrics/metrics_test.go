package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"NewsIngest/internal/domain"
)

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(ArticlesTotal.WithLabelValues("rejected", "too_short"))
	RecordDecision(domain.Rejected(domain.RejectTooShort), time.Millisecond)
	after := testutil.ToFloat64(ArticlesTotal.WithLabelValues("rejected", "too_short"))
	assert.Equal(t, before+1, after)
}

func TestRecordRunAndCache(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("partial"))
	RecordRun(domain.RunPartial, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("partial")))

	SetCacheUp(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(CacheStatus))
	SetCacheUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(CacheStatus))
}
