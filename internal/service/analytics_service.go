package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	analyticsWindows   = 12
	analyticsWindowLen = 28 * 24 * time.Hour
)

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type AnalyticsService struct {
	source AnalyticsSource
	log    zerolog.Logger
	now    func() time.Time
}

func NewAnalyticsService(source AnalyticsSource, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		source: source,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AnalyticsService) Users(ctx context.Context) ([]MonthCount, error) {
	return s.lastYear(ctx, "users")
}

func (s *AnalyticsService) Courses(ctx context.Context) ([]MonthCount, error) {
	return s.lastYear(ctx, "courses")
}

func (s *AnalyticsService) Orders(ctx context.Context) ([]MonthCount, error) {
	return s.lastYear(ctx, "orders")
}

func (s *AnalyticsService) lastYear(ctx context.Context, entity string) ([]MonthCount, error) {
	end := s.now()
	start := end.Add(-analyticsWindows * analyticsWindowLen)

	stamps, err := s.source.CreatedSince(ctx, entity, start)
	if err != nil {
		return nil, internalErr("load "+entity+" analytics", err)
	}
	return bucketByWindow(stamps, end), nil
}

// bucketByWindow counts stamps into twelve consecutive 28-day windows that
// end at end, oldest first. Each window is labelled with its end date and
// covers (end-28d, end].
func bucketByWindow(stamps []time.Time, end time.Time) []MonthCount {
	out := make([]MonthCount, analyticsWindows)
	ends := make([]time.Time, analyticsWindows)
	for i := 0; i < analyticsWindows; i++ {
		windowEnd := end.Add(-time.Duration(analyticsWindows-1-i) * analyticsWindowLen)
		ends[i] = windowEnd
		out[i].Month = windowEnd.Format("02 Jan 2006")
	}

	for _, t := range stamps {
		for i, windowEnd := range ends {
			windowStart := windowEnd.Add(-analyticsWindowLen)
			if t.After(windowStart) && !t.After(windowEnd) {
				out[i].Count++
				break
			}
		}
	}
	return out
}
