package meeting

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const whenPrefix = "when: "

const (
	// Wednesday, April 20, 2016 9:00 PM -0500
	onceLayout = "Monday, January 2, 2006 3:04 PM -0700"

	// 4/19/2016 4:00 PM (the anchor's trailing period is removed first)
	anchorLayout = "1/2/2006 3:04 PM"
)

// Parser turns the "When:" line of an invitation body into a MeetingTime.
type Parser struct {
	// Location applies to recurring lines that carry no offset literal.
	Location *time.Location
}

// NewParser creates a parser that reads offset-less recurring lines in loc.
func NewParser(loc *time.Location) *Parser {
	return &Parser{Location: loc}
}

func (p *Parser) location() *time.Location {
	if p == nil || p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// FindWhenLine returns the text after the first line that begins with
// "when: " (any case).
func FindWhenLine(body string) (string, bool) {
	lines := strings.FieldsFunc(body, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		if len(line) >= len(whenPrefix) && strings.EqualFold(line[:len(whenPrefix)], whenPrefix) {
			return line[len(whenPrefix):], true
		}
	}
	return "", false
}

// ParseBody locates the "When:" line in an invitation body and parses it.
func (p *Parser) ParseBody(body string) (MeetingTime, error) {
	line, ok := FindWhenLine(body)
	if !ok {
		return MeetingTime{}, &ParseError{Kind: ErrMalformedInvitation, Reason: `no "When:" line in body`}
	}
	return p.ParseLine(line)
}

// ParseLine parses the remainder of a "When:" line.
func (p *Parser) ParseLine(line string) (MeetingTime, error) {
	if strings.HasPrefix(line, "Occurs ") {
		return p.parseRecurring(line)
	}
	return parseOnce(line)
}

// parseOnce reads a single-occurrence line:
//
//	0: Wednesday,  1: April  2: 20,  3: 2016  4: 9:00  5: PM-10:00  6: PM  7: (UTC-05:00)
//
// Anything after field 7 is the zone's display name and is ignored.
func parseOnce(line string) (MeetingTime, error) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return MeetingTime{}, malformed(line, "expected at least 8 fields, got %d", len(fields))
	}

	startMarker, endClock, ok := strings.Cut(fields[5], "-")
	if !ok || startMarker == "" || endClock == "" {
		return MeetingTime{}, malformed(line, "field %q is not <start>-<end>", fields[5])
	}
	endMarker := strings.ToUpper(strings.ReplaceAll(fields[6], ".", ""))

	offset, err := offsetLiteral(fields[7])
	if err != nil {
		return MeetingTime{}, malformed(line, "%v", err)
	}

	date := strings.Join(fields[:4], " ")
	start, err := time.Parse(onceLayout, strings.Join([]string{date, fields[4], strings.ToUpper(startMarker), offset}, " "))
	if err != nil {
		return MeetingTime{}, malformed(line, "start time: %v", err)
	}
	end, err := time.Parse(onceLayout, strings.Join([]string{date, endClock, endMarker, offset}, " "))
	if err != nil {
		return MeetingTime{}, malformed(line, "end time: %v", err)
	}

	return newMeetingTime(line, start, end, NoRecurrence{})
}

type recurringGrammar int

const (
	grammarDaily recurringGrammar = iota
	grammarWeekly
	grammarMonthly
	grammarAnnually
)

func (p *Parser) parseRecurring(line string) (MeetingTime, error) {
	words := strings.Fields(line)

	grammar, ok := recurringGrammarOf(line, words)
	if !ok {
		return MeetingTime{}, &ParseError{Kind: ErrUnrecognizedRecurrencePattern, Line: line}
	}

	start, end, err := p.clockWindow(line, words)
	if err != nil {
		return MeetingTime{}, err
	}

	var rule Recurrence
	switch grammar {
	case grammarDaily:
		rule = Daily{}
	case grammarWeekly:
		weekday, err := ResolveWeekday(start, words[2])
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = line
			}
			return MeetingTime{}, err
		}
		rule = Weekly{Weekday: weekday}
	case grammarMonthly:
		if len(words) < 6 {
			return MeetingTime{}, malformed(line, "missing day of month")
		}
		day, err := strconv.Atoi(words[5])
		if err != nil {
			return MeetingTime{}, malformed(line, "day of month %q is not a number", words[5])
		}
		monthly, err := NewMonthly(day)
		if err != nil {
			return MeetingTime{}, malformed(line, "%v", err)
		}
		rule = monthly
	case grammarAnnually:
		// The literal "April 20" may omit the year, so the anchor date is
		// the authority for the month and day.
		annually, err := NewAnnually(int(start.Month()), start.Day())
		if err != nil {
			return MeetingTime{}, malformed(line, "%v", err)
		}
		rule = annually
	}

	return newMeetingTime(line, start, end, rule)
}

func recurringGrammarOf(line string, words []string) (recurringGrammar, bool) {
	if !strings.HasPrefix(line, "Occurs every ") || len(words) < 3 {
		return 0, false
	}

	switch {
	case strings.HasPrefix(line, "Occurs every day from "):
		return grammarDaily, true
	case isWeekdayName(words[2]):
		return grammarWeekly, true
	case strings.HasPrefix(line, "Occurs every month on day "):
		return grammarMonthly, true
	case len(words) > 3 && isMonthName(words[2]) && isDayNumber(words[3]):
		return grammarAnnually, true
	}
	return 0, false
}

// clockWindow reads "from <h:mm> <AM|PM> to <h:mm> <AM|PM>" and the
// "effective <M/D/Y>." anchor, returning the first occurrence's bounds.
func (p *Parser) clockWindow(line string, words []string) (time.Time, time.Time, error) {
	from := indexOf(words, "from", 0)
	if from < 0 || from+5 >= len(words) || words[from+3] != "to" {
		return time.Time{}, time.Time{}, malformed(line, `missing "from <start> to <end>" clause`)
	}

	effective := indexOf(words, "effective", from+6)
	if effective < 0 || effective+1 >= len(words) {
		return time.Time{}, time.Time{}, malformed(line, `missing "effective <date>" clause`)
	}
	anchor := strings.TrimSuffix(words[effective+1], ".")

	loc := p.location()
	if effective+2 < len(words) {
		if zone, err := offsetLocation(words[effective+2]); err == nil {
			loc = zone
		}
	}

	startStr := strings.Join([]string{anchor, words[from+1], strings.ToUpper(words[from+2])}, " ")
	start, err := time.ParseInLocation(anchorLayout, startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, malformed(line, "start time: %v", err)
	}

	endStr := strings.Join([]string{anchor, words[from+4], strings.ToUpper(strings.TrimSuffix(words[from+5], "."))}, " ")
	end, err := time.ParseInLocation(anchorLayout, endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, malformed(line, "end time: %v", err)
	}

	return start, end, nil
}

// ResolveWeekday walks forward from anchor, at most six days, to the first
// date whose English weekday name equals name exactly.
func ResolveWeekday(anchor time.Time, name string) (Weekday, error) {
	step := anchor
	for i := 0; i < 7; i++ {
		if step.Weekday().String() == name {
			return WeekdayOf(step.Weekday()), nil
		}
		step = step.AddDate(0, 0, 1)
	}
	return 0, &ParseError{Kind: ErrInvalidWeekday, Reason: fmt.Sprintf("no day named %q within a week", name)}
}

func newMeetingTime(line string, start, end time.Time, rule Recurrence) (MeetingTime, error) {
	duration := end.Sub(start)
	if duration < 0 {
		return MeetingTime{}, malformed(line, "meeting ends %s before it starts", -duration)
	}
	return MeetingTime{Start: start, Duration: duration, Recurrence: rule}, nil
}

// offsetLiteral turns "(UTC-05:00)" into "-0500".
func offsetLiteral(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '(' || tok[len(tok)-1] != ')' {
		return "", fmt.Errorf("offset %q is not parenthesised", tok)
	}
	inner := strings.ReplaceAll(tok[1:len(tok)-1], ":", "")

	sign := strings.IndexAny(inner, "+-")
	if sign < 0 {
		return "", fmt.Errorf("offset %q has no sign", tok)
	}
	for _, r := range inner[:sign] {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("offset %q has a malformed zone name", tok)
		}
	}

	offset := inner[sign:]
	if len(offset) != 5 {
		return "", fmt.Errorf("offset %q is not ±hhmm", tok)
	}
	for _, c := range offset[1:] {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("offset %q is not numeric", tok)
		}
	}
	return offset, nil
}

func offsetLocation(tok string) (*time.Location, error) {
	offset, err := offsetLiteral(tok)
	if err != nil {
		return nil, err
	}
	hours, _ := strconv.Atoi(offset[1:3])
	minutes, _ := strconv.Atoi(offset[3:5])
	seconds := hours*3600 + minutes*60
	if offset[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("", seconds), nil
}

func indexOf(words []string, word string, from int) int {
	for i := from; i < len(words); i++ {
		if words[i] == word {
			return i
		}
	}
	return -1
}

func isWeekdayName(s string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return true
		}
	}
	return false
}

func isMonthName(s string) bool {
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return true
		}
	}
	return false
}

func isDayNumber(s string) bool {
	n, err := strconv.Atoi(strings.TrimSuffix(s, ","))
	return err == nil && n >= 1 && n <= 31
}
