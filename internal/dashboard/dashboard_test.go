package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/observability/metrics"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type stubCounts struct {
	counts []outreach.StatusCount
	err    error
}

func (s stubCounts) Counts(context.Context) ([]outreach.StatusCount, error) {
	return s.counts, s.err
}

type stubActivity struct {
	days []audit.ActivityDay
	err  error

	gotStart time.Time
	gotEnd   time.Time
}

func (s *stubActivity) ActivityByDay(_ context.Context, start, end time.Time) ([]audit.ActivityDay, error) {
	s.gotStart = start
	s.gotEnd = end
	return s.days, s.err
}

type stubGatherer struct {
	families []*dto.MetricFamily
	err      error
}

func (s stubGatherer) Gather() ([]*dto.MetricFamily, error) {
	return s.families, s.err
}

var _ prometheus.Gatherer = stubGatherer{}

func ptrString(v string) *string    { return &v }
func ptrUint64(v uint64) *uint64    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func latencyFamily(status string, sampleCount uint64, buckets ...*dto.Bucket) *dto.MetricFamily {
	metricType := dto.MetricType_HISTOGRAM
	return &dto.MetricFamily{
		Name: ptrString(metrics.DraftLatencyName),
		Type: &metricType,
		Metric: []*dto.Metric{
			{
				Label: []*dto.LabelPair{
					{Name: ptrString("op"), Value: ptrString("generate")},
					{Name: ptrString("status"), Value: ptrString(status)},
				},
				Histogram: &dto.Histogram{
					SampleCount: ptrUint64(sampleCount),
					Bucket:      buckets,
				},
			},
		},
	}
}

func TestDashboardHandler_FillsMissingDaysAndSummarizes(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	activity := &stubActivity{
		days: []audit.ActivityDay{
			{Day: start, DayLabel: "2026-03-01", Moves: 3, Total: 5},
			{Day: start.AddDate(0, 0, 2), DayLabel: "2026-03-03", Moves: 1, Total: 1},
		},
	}
	counts := stubCounts{counts: []outreach.StatusCount{
		{Kind: outreach.KindSpeaker, Status: outreach.StatusScouted, Count: 10},
		{Kind: outreach.KindSpeaker, Status: outreach.StatusContactInitiated, Count: 4},
		{Kind: outreach.KindSpeaker, Status: outreach.StatusLocked, Count: 2},
		{Kind: outreach.KindSponsor, Status: outreach.StatusDrafted, Count: 3},
	}}
	gatherer := stubGatherer{families: []*dto.MetricFamily{
		latencyFamily("ok", 10,
			&dto.Bucket{UpperBound: ptrFloat64(1.0), CumulativeCount: ptrUint64(5)},
			&dto.Bucket{UpperBound: ptrFloat64(2.0), CumulativeCount: ptrUint64(9)},
			&dto.Bucket{UpperBound: ptrFloat64(3.0), CumulativeCount: ptrUint64(10)},
		),
	}}

	handler := NewHandler(counts, activity, gatherer, logging.Discard())
	req := httptest.NewRequest(http.MethodGet, "/dashboard?start=2026-03-01T00:00:00Z&end=2026-03-04T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Pipeline) != 4 {
		t.Fatalf("pipeline length = %d, want 4", len(resp.Pipeline))
	}
	speakers := resp.Summary[outreach.KindSpeaker]
	if speakers.Total != 16 || speakers.Contacted != 6 || speakers.Locked != 2 {
		t.Fatalf("unexpected speaker summary %#v", speakers)
	}
	if speakers.ConversionPct < 33.3 || speakers.ConversionPct > 33.4 {
		t.Fatalf("conversion_pct = %f, want ~33.33", speakers.ConversionPct)
	}
	sponsors := resp.Summary[outreach.KindSponsor]
	if sponsors.Total != 3 || sponsors.Contacted != 0 || sponsors.ConversionPct != 0 {
		t.Fatalf("unexpected sponsor summary %#v", sponsors)
	}

	if len(resp.Daily) != 3 {
		t.Fatalf("daily length = %d, want 3", len(resp.Daily))
	}
	if resp.Daily[1].DayLabel != "2026-03-02" || resp.Daily[1].Moves != 0 || resp.Daily[1].Total != 0 {
		t.Fatalf("expected 2026-03-02 to be filled with zeros, got %#v", resp.Daily[1])
	}

	if resp.DraftLatency.Total != 10 {
		t.Fatalf("draft_latency.total = %d, want 10", resp.DraftLatency.Total)
	}
	if resp.DraftLatency.P90Ms < 1999 || resp.DraftLatency.P90Ms > 2001 {
		t.Fatalf("draft_latency.p90_ms = %f, want ~2000", resp.DraftLatency.P90Ms)
	}
	if resp.DraftLatency.P95Ms < 2499 || resp.DraftLatency.P95Ms > 2501 {
		t.Fatalf("draft_latency.p95_ms = %f, want ~2500", resp.DraftLatency.P95Ms)
	}

	if !activity.gotStart.Equal(start) || !activity.gotEnd.Equal(end) {
		t.Fatalf("activity called with (%s, %s); want (%s, %s)", activity.gotStart, activity.gotEnd, start, end)
	}
}

func TestDashboardHandler_DefaultWindowUsesDays(t *testing.T) {
	activity := &stubActivity{}
	handler := NewHandler(stubCounts{}, activity, stubGatherer{}, logging.Discard())
	handler.now = func() time.Time { return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/dashboard?days=3", nil)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	wantEnd := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !activity.gotEnd.Equal(wantEnd) || !activity.gotStart.Equal(wantEnd.AddDate(0, 0, -3)) {
		t.Fatalf("unexpected window (%s, %s)", activity.gotStart, activity.gotEnd)
	}

	var resp Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Daily) != 3 {
		t.Fatalf("daily length = %d, want 3", len(resp.Daily))
	}
}

func TestDashboardHandler_RejectsBadWindow(t *testing.T) {
	cases := map[string]string{
		"start only":    "/dashboard?start=2026-03-01T00:00:00Z",
		"bad start":     "/dashboard?start=yesterday&end=2026-03-04T00:00:00Z",
		"end not after": "/dashboard?start=2026-03-04T00:00:00Z&end=2026-03-01T00:00:00Z",
		"days too big":  "/dashboard?days=365",
		"days not int":  "/dashboard?days=week",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewHandler(stubCounts{}, &stubActivity{}, stubGatherer{}, logging.Discard())
			rec := httptest.NewRecorder()
			handler.Get(rec, httptest.NewRequest(http.MethodGet, target, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDashboardHandler_CountsErrorIsInternal(t *testing.T) {
	handler := NewHandler(stubCounts{err: errors.New("db down")}, &stubActivity{}, stubGatherer{}, logging.Discard())
	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSnapshotDraftLatency_NoMetrics(t *testing.T) {
	lat := snapshotDraftLatency(stubGatherer{families: nil})
	if lat.Total != 0 {
		t.Fatalf("expected total=0, got %d", lat.Total)
	}
}

func TestSnapshotDraftLatency_IgnoresFailedCallsAndShowsOverflow(t *testing.T) {
	gatherer := stubGatherer{families: []*dto.MetricFamily{
		latencyFamily("error", 50,
			&dto.Bucket{UpperBound: ptrFloat64(1.0), CumulativeCount: ptrUint64(50)},
		),
	}}
	if lat := snapshotDraftLatency(gatherer); lat.Total != 0 {
		t.Fatalf("expected failed calls to be ignored, got total=%d", lat.Total)
	}

	gatherer = stubGatherer{families: []*dto.MetricFamily{
		latencyFamily("ok", 4,
			&dto.Bucket{UpperBound: ptrFloat64(1.0), CumulativeCount: ptrUint64(1)},
			&dto.Bucket{UpperBound: ptrFloat64(2.0), CumulativeCount: ptrUint64(3)},
		),
	}}
	lat := snapshotDraftLatency(gatherer)
	if lat.Total != 4 {
		t.Fatalf("expected total=4, got %d", lat.Total)
	}
	last := lat.Buckets[len(lat.Buckets)-1]
	if last.Label != ">2.0s" || last.Count != 1 {
		t.Fatalf("expected overflow bucket >2.0s with 1 sample, got %#v", last)
	}
}
