package meeting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecurKind identifies which variant of Recurrence a value holds.
type RecurKind string

const (
	RecurNone     RecurKind = "none"
	RecurDaily    RecurKind = "daily"
	RecurWeekly   RecurKind = "weekly"
	RecurMonthly  RecurKind = "monthly"
	RecurAnnually RecurKind = "annually"
)

// Weekday is a day of the week numbered from Monday = 0 to Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts a time.Weekday (Sunday = 0) to a Monday-based Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// String returns the English name of the day.
func (d Weekday) String() string {
	return time.Weekday((int(d) + 1) % 7).String()
}

// Recurrence is the rule a meeting repeats by. The concrete types are
// NoRecurrence, Daily, Weekly, Monthly and Annually; no other package can
// add a variant.
type Recurrence interface {
	Kind() RecurKind
	// Param renders the variant's parameter for storage, or "" when the
	// variant carries none.
	Param() string
	isRecurrence()
}

// NoRecurrence marks a single-occurrence meeting.
type NoRecurrence struct{}

// Daily repeats every day.
type Daily struct{}

// Weekly repeats every week on Weekday.
type Weekly struct {
	Weekday Weekday
}

// Monthly repeats every month on Day.
type Monthly struct {
	Day int
}

// Annually repeats every year on Month/Day.
type Annually struct {
	Month time.Month
	Day   int
}

func (NoRecurrence) Kind() RecurKind { return RecurNone }
func (Daily) Kind() RecurKind        { return RecurDaily }
func (Weekly) Kind() RecurKind       { return RecurWeekly }
func (Monthly) Kind() RecurKind      { return RecurMonthly }
func (Annually) Kind() RecurKind     { return RecurAnnually }

func (NoRecurrence) Param() string { return "" }
func (Daily) Param() string        { return "" }
func (r Weekly) Param() string     { return strconv.Itoa(int(r.Weekday)) }
func (r Monthly) Param() string    { return strconv.Itoa(r.Day) }
func (r Annually) Param() string   { return fmt.Sprintf("%d-%d", int(r.Month), r.Day) }

func (NoRecurrence) isRecurrence() {}
func (Daily) isRecurrence()        {}
func (Weekly) isRecurrence()       {}
func (Monthly) isRecurrence()      {}
func (Annually) isRecurrence()     {}

// NewWeekly returns a Weekly rule, rejecting days outside [0,6].
func NewWeekly(weekday int) (Weekly, error) {
	if weekday < int(Monday) || weekday > int(Sunday) {
		return Weekly{}, fmt.Errorf("weekday %d out of range [0,6]", weekday)
	}
	return Weekly{Weekday: Weekday(weekday)}, nil
}

// NewMonthly returns a Monthly rule, rejecting days outside [1,31].
func NewMonthly(day int) (Monthly, error) {
	if day < 1 || day > 31 {
		return Monthly{}, fmt.Errorf("day of month %d out of range [1,31]", day)
	}
	return Monthly{Day: day}, nil
}

// NewAnnually returns an Annually rule, rejecting months outside [1,12]
// and days outside [1,31].
func NewAnnually(month, day int) (Annually, error) {
	if month < 1 || month > 12 {
		return Annually{}, fmt.Errorf("month %d out of range [1,12]", month)
	}
	if day < 1 || day > 31 {
		return Annually{}, fmt.Errorf("day of month %d out of range [1,31]", day)
	}
	return Annually{Month: time.Month(month), Day: day}, nil
}

// DecodeRecurrence rebuilds a Recurrence from its stored kind and param.
func DecodeRecurrence(kind, param string) (Recurrence, error) {
	param = strings.TrimSpace(param)

	switch RecurKind(kind) {
	case RecurNone, "":
		return NoRecurrence{}, nil
	case RecurDaily:
		return Daily{}, nil
	case RecurWeekly:
		n, err := strconv.Atoi(param)
		if err != nil {
			return nil, fmt.Errorf("invalid weekly param %q", param)
		}
		return NewWeekly(n)
	case RecurMonthly:
		n, err := strconv.Atoi(param)
		if err != nil {
			return nil, fmt.Errorf("invalid monthly param %q", param)
		}
		return NewMonthly(n)
	case RecurAnnually:
		month, day, ok := strings.Cut(param, "-")
		if !ok {
			return nil, fmt.Errorf("invalid annually param %q", param)
		}
		m, err := strconv.Atoi(month)
		if err != nil {
			return nil, fmt.Errorf("invalid annually param %q", param)
		}
		d, err := strconv.Atoi(day)
		if err != nil {
			return nil, fmt.Errorf("invalid annually param %q", param)
		}
		return NewAnnually(m, d)
	default:
		return nil, fmt.Errorf("unknown recurrence kind %q", kind)
	}
}

// MeetingTime is the parsed start, length and repeat rule of one invitation.
type MeetingTime struct {
	Start      time.Time
	Duration   time.Duration
	Recurrence Recurrence
}

// End returns the end of the first occurrence.
func (m MeetingTime) End() time.Time {
	return m.Start.Add(m.Duration)
}

// IsRecurring reports whether the meeting repeats.
func (m MeetingTime) IsRecurring() bool {
	return m.Recurrence != nil && m.Recurrence.Kind() != RecurNone
}
