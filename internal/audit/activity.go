package audit

import (
	"context"
	"fmt"
	"time"
)

// ActivityDay counts audit entries for one UTC day.
type ActivityDay struct {
	Day      time.Time `json:"-"`
	DayLabel string    `json:"day"`
	Moves    int64     `json:"moves"`
	Total    int64     `json:"total"`
}

// ActivityByDay groups entries in [start, end) by UTC day. Days without
// entries are omitted.
func (r *Reader) ActivityByDay(ctx context.Context, start, end time.Time) ([]ActivityDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day,
		       COUNT(*) FILTER (WHERE action = 'MOVE') AS moves,
		       COUNT(*) AS total
		FROM audit_log
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("audit: query activity: %w", err)
	}
	defer rows.Close()

	days := []ActivityDay{}
	for rows.Next() {
		var d ActivityDay
		if err := rows.Scan(&d.Day, &d.Moves, &d.Total); err != nil {
			return nil, fmt.Errorf("audit: scan activity: %w", err)
		}
		d.Day = d.Day.UTC()
		d.DayLabel = d.Day.Format("2006-01-02")
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate activity: %w", err)
	}
	return days, nil
}
