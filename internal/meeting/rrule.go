package meeting

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// rruleOption maps a recurrence onto RFC 5545 options anchored at dtstart.
// It returns false for NoRecurrence.
func rruleOption(r Recurrence, dtstart time.Time) (rrule.ROption, bool, error) {
	opt := rrule.ROption{Dtstart: dtstart}

	switch v := r.(type) {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		if v.Weekday < Monday || v.Weekday > Sunday {
			return rrule.ROption{}, false, fmt.Errorf("weekday %d out of range [0,6]", int(v.Weekday))
		}
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[v.Weekday]}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{v.Day}
	case Annually:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(v.Month)}
		opt.Bymonthday = []int{v.Day}
	default:
		return rrule.ROption{}, false, nil
	}

	return opt, true, nil
}

// RRule renders the recurrence as the value of an RRULE property, for
// example "FREQ=WEEKLY;BYDAY=TU". Single occurrences render as "".
func RRule(r Recurrence, dtstart time.Time) (string, error) {
	opt, ok, err := rruleOption(r, dtstart)
	if err != nil {
		return "", fmt.Errorf("invalid %s recurrence: %w", r.Kind(), err)
	}
	if !ok {
		return "", nil
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("invalid %s recurrence: %w", r.Kind(), err)
	}
	return opt.RRuleString(), nil
}
