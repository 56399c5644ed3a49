package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFeed(t *testing.T) {
	okBefore := testutil.ToFloat64(FeedRequests.WithLabelValues("explore", "ok"))
	errBefore := testutil.ToFloat64(FeedRequests.WithLabelValues("explore", "error"))

	RecordFeed("explore", 40, 3*time.Millisecond, nil)
	RecordFeed("explore", 0, time.Millisecond, errors.New("store down"))

	if got := testutil.ToFloat64(FeedRequests.WithLabelValues("explore", "ok")); got != okBefore+1 {
		t.Errorf("ok count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(FeedRequests.WithLabelValues("explore", "error")); got != errBefore+1 {
		t.Errorf("error count = %v, want %v", got, errBefore+1)
	}
}

func TestRecordInteraction(t *testing.T) {
	before := testutil.ToFloat64(InteractionsRecorded.WithLabelValues("like", "sync"))
	errBefore := testutil.ToFloat64(InteractionErrors.WithLabelValues("async"))

	RecordInteraction("like", "sync", nil)
	RecordInteraction("like", "async", errors.New("bad payload"))

	if got := testutil.ToFloat64(InteractionsRecorded.WithLabelValues("like", "sync")); got != before+1 {
		t.Errorf("recorded = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(InteractionErrors.WithLabelValues("async")); got != errBefore+1 {
		t.Errorf("errors = %v, want %v", got, errBefore+1)
	}
}

func TestRecordJob(t *testing.T) {
	done := testutil.ToFloat64(JobsProcessed.WithLabelValues("record_interaction", "completed"))
	retried := testutil.ToFloat64(JobsProcessed.WithLabelValues("record_interaction", "retried"))

	RecordJob("record_interaction", nil)
	RecordJob("record_interaction", errors.New("boom"))

	if got := testutil.ToFloat64(JobsProcessed.WithLabelValues("record_interaction", "completed")); got != done+1 {
		t.Errorf("completed = %v, want %v", got, done+1)
	}
	if got := testutil.ToFloat64(JobsProcessed.WithLabelValues("record_interaction", "retried")); got != retried+1 {
		t.Errorf("retried = %v, want %v", got, retried+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/feed", "200"))
	RecordAPIRequest("GET", "/feed", "200", 5*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/feed", "200")); got != before+1 {
		t.Errorf("requests = %v, want %v", got, before+1)
	}
	RecordLookup("related", time.Millisecond)
	if n := testutil.CollectAndCount(LookupDuration); n == 0 {
		t.Error("expected lookup histogram series")
	}
}
