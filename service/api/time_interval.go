package api

import (
	"fmt"
	"strings"
)

// TimeInterval is the sampling frequency of a data series request.
type TimeInterval uint8

const (
	TimeIntervalDaily TimeInterval = iota
	TimeIntervalWeekly
	TimeIntervalMonthly
	TimeIntervalQuarterly
	TimeIntervalSemiannual
	TimeIntervalAnnual
)

func (t TimeInterval) Name() string {
	switch t {
	case TimeIntervalDaily:
		return "TimeIntervalDaily"
	case TimeIntervalWeekly:
		return "TimeIntervalWeekly"
	case TimeIntervalMonthly:
		return "TimeIntervalMonthly"
	case TimeIntervalQuarterly:
		return "TimeIntervalQuarterly"
	case TimeIntervalSemiannual:
		return "TimeIntervalSemiannual"
	case TimeIntervalAnnual:
		return "TimeIntervalAnnual"
	default:
		return ""
	}
}

func (t TimeInterval) Interval() string {
	switch t {
	case TimeIntervalDaily:
		return "daily"
	case TimeIntervalWeekly:
		return "weekly"
	case TimeIntervalMonthly:
		return "monthly"
	case TimeIntervalQuarterly:
		return "quarterly"
	case TimeIntervalSemiannual:
		return "semiannual"
	case TimeIntervalAnnual:
		return "annual"
	default:
		return ""
	}
}

// ParseTimeInterval maps "daily", "weekly", ... back to a TimeInterval.
func ParseTimeInterval(s string) (TimeInterval, error) {
	for t := TimeIntervalDaily; t <= TimeIntervalAnnual; t++ {
		if strings.EqualFold(s, t.Interval()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown interval %q", s)
}
