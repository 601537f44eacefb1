// Package dashboard serves the pipeline overview: board counts, daily audit
// activity and AI draft latency.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type countsSource interface {
	Counts(ctx context.Context) ([]outreach.StatusCount, error)
}

type activitySource interface {
	ActivityByDay(ctx context.Context, start, end time.Time) ([]audit.ActivityDay, error)
}

type KindSummary struct {
	Total         int     `json:"total"`
	Locked        int     `json:"locked"`
	Contacted     int     `json:"contacted"`
	ConversionPct float64 `json:"conversion_pct"`
}

type Dashboard struct {
	PeriodStart  string                        `json:"period_start"`
	PeriodEnd    string                        `json:"period_end"`
	Pipeline     []outreach.StatusCount        `json:"pipeline"`
	Summary      map[outreach.Kind]KindSummary `json:"summary"`
	DraftLatency LatencySnapshot               `json:"draft_latency"`
	Daily        []audit.ActivityDay           `json:"daily"`
}

type Handler struct {
	counts   countsSource
	activity activitySource
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	now      func() time.Time
}

func NewHandler(counts countsSource, activity activitySource, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{counts: counts, activity: activity, gatherer: gatherer, logger: logger, now: time.Now}
}

// Get handles GET /dashboard
// Query params:
//   - start, end: RFC3339 window (both or neither)
//   - days: window length when start/end are omitted (default 7, max 90)
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseWindow(r)
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Validation(err.Error()))
		return
	}

	counts, err := h.counts.Counts(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	daily, err := h.activity.ActivityByDay(r.Context(), start, end)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, Dashboard{
		PeriodStart:  start.Format(time.RFC3339),
		PeriodEnd:    end.Format(time.RFC3339),
		Pipeline:     counts,
		Summary:      summarize(counts),
		DraftLatency: snapshotDraftLatency(h.gatherer),
		Daily:        fillMissingDays(daily, start, end),
	})
}

// summarize treats CONTACT_INITIATED and later as contacted; conversion is
// locked over contacted.
func summarize(counts []outreach.StatusCount) map[outreach.Kind]KindSummary {
	out := map[outreach.Kind]KindSummary{}
	for _, c := range counts {
		s := out[c.Kind]
		s.Total += c.Count
		if outreach.Rank(c.Status) >= outreach.Rank(outreach.StatusContactInitiated) {
			s.Contacted += c.Count
		}
		if c.Status == outreach.StatusLocked {
			s.Locked += c.Count
		}
		out[c.Kind] = s
	}
	for k, s := range out {
		if s.Contacted > 0 {
			s.ConversionPct = float64(s.Locked) / float64(s.Contacted) * 100.0
		}
		out[k] = s
	}
	return out
}

func (h *Handler) parseWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	startRaw := strings.TrimSpace(q.Get("start"))
	endRaw := strings.TrimSpace(q.Get("end"))
	if (startRaw == "") != (endRaw == "") {
		return time.Time{}, time.Time{}, fmt.Errorf("both start and end must be provided, or neither")
	}
	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start time, use RFC3339 format")
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end time, use RFC3339 format")
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
		}
		return start.UTC(), end.UTC(), nil
	}

	days := 7
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid days; must be 1-90")
		}
		days = parsed
	}
	now := h.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -days), end, nil
}

func fillMissingDays(existing []audit.ActivityDay, start, end time.Time) []audit.ActivityDay {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	lookup := make(map[string]audit.ActivityDay, len(existing))
	for _, d := range existing {
		lookup[d.DayLabel] = d
	}
	out := make([]audit.ActivityDay, 0, int(end.Sub(startDay).Hours()/24)+1)
	for day := startDay; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if found, ok := lookup[key]; ok {
			out = append(out, found)
			continue
		}
		out = append(out, audit.ActivityDay{Day: day, DayLabel: key})
	}
	return out
}
