package scheduler

import (
	"fmt"
	"sort"
	"time"

	"crypto-portfolio-bot/internal/types"
)

// ReportSchedule is a cron.Schedule firing at fixed wall-clock times of day.
// For every_3_days only days whose number since 1970-01-01 is divisible by 3 qualify.
type ReportSchedule struct {
	minutes    []int
	every3Days bool
	loc        *time.Location
}

func NewReportSchedule(sub types.ReportSubscription, loc *time.Location) (*ReportSchedule, error) {
	if sub.Hour < 0 || sub.Hour > 23 || sub.Minute < 0 || sub.Minute > 59 {
		return nil, fmt.Errorf("invalid report time %02d:%02d", sub.Hour, sub.Minute)
	}
	if loc == nil {
		loc = time.Local
	}

	at := sub.Hour*60 + sub.Minute
	s := &ReportSchedule{loc: loc}
	switch sub.Frequency {
	case types.Daily:
		s.minutes = []int{at}
	case types.Every12Hours:
		s.minutes = []int{at, (at + 12*60) % (24 * 60)}
	case types.Every3Days:
		s.minutes = []int{at}
		s.every3Days = true
	default:
		return nil, fmt.Errorf("unknown frequency %q", sub.Frequency)
	}
	sort.Ints(s.minutes)
	return s, nil
}

// Next returns the first activation strictly after t.
func (s *ReportSchedule) Next(t time.Time) time.Time {
	t = t.In(s.loc)
	year, month, day := t.Date()

	for offset := 0; offset <= 3; offset++ {
		if s.every3Days && epochDay(year, month, day+offset)%3 != 0 {
			continue
		}
		for _, m := range s.minutes {
			candidate := time.Date(year, month, day+offset, m/60, m%60, 0, 0, s.loc)
			if candidate.After(t) {
				return candidate
			}
		}
	}
	return time.Time{}
}

// epochDay counts calendar days since 1970-01-01, independent of DST shifts.
func epochDay(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
