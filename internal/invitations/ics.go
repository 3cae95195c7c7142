package invitations

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/frankbot/frank/internal/meeting"
)

const icsProductID = "-//frank//invitations//EN"

// ICSOptions controls how invitations are rendered as iCalendar.
type ICSOptions struct {
	// BaseURL prefixes the invitation page URL and the event UID domain.
	BaseURL string
	// MailDomain turns userids into attendee addresses.
	MailDomain string
}

// InvitationURL returns the page URL of invitation id.
func InvitationURL(baseURL string, id int64) string {
	return fmt.Sprintf("%s/calendar/invites/%d", strings.TrimRight(baseURL, "/"), id)
}

// ToICS renders inv as a single-event calendar.
func ToICS(inv *Invitation, opts ICSOptions, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)

	event := cal.AddEvent(fmt.Sprintf("invitation-%d@%s", inv.ID, uidDomain(opts.BaseURL)))
	event.SetDtStampTime(now)
	if !inv.CreatedAt.IsZero() {
		event.SetCreatedTime(inv.CreatedAt)
	}
	event.SetStartAt(inv.MeetingDate)
	event.SetEndAt(inv.End())
	event.SetSummary(inv.Subject)
	event.SetDescription(inv.Body)
	if opts.BaseURL != "" {
		event.SetURL(InvitationURL(opts.BaseURL, inv.ID))
	}

	if inv.Owner != nil {
		event.SetOrganizer(mailto(inv.Owner.UserID, opts.MailDomain), ical.WithCN(inv.Owner.UserID))
	}
	for _, p := range inv.Attendees {
		event.AddAttendee(mailto(p.UserID, opts.MailDomain), ical.WithCN(p.UserID))
	}

	if inv.Recurrence != nil && inv.Recurrence.Kind() != meeting.RecurNone {
		rule, err := meeting.RRule(inv.Recurrence, inv.MeetingDate)
		if err != nil {
			return "", err
		}
		event.AddRrule(rule)
	}

	switch inv.Status {
	case StatusCanceled:
		event.SetProperty(ical.ComponentPropertyStatus, "CANCELLED")
	default:
		event.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
	}

	return cal.Serialize(), nil
}

func mailto(userID, domain string) string {
	if domain == "" {
		return "mailto:" + userID
	}
	return "mailto:" + userID + "@" + domain
}

func uidDomain(baseURL string) string {
	host := baseURL
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	host, _, _ = strings.Cut(host, "/")
	if host == "" {
		return "frank"
	}
	return host
}
