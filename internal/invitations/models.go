package invitations

import (
	"math"
	"time"

	"github.com/frankbot/frank/internal/meeting"
	"github.com/frankbot/frank/internal/profiles"
)

// Status is the lifecycle state of an invitation
type Status int

const (
	StatusCanceled Status = -1
	StatusPending  Status = 0
	StatusDone     Status = 1
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusCanceled:
		return "canceled"
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// IsValid checks if the status is one of the defined values
func (s Status) IsValid() bool {
	return s == StatusCanceled || s == StatusPending || s == StatusDone
}

// StatusAt classifies a meeting starting at start as seen at now. A meeting
// that starts exactly now is still pending.
func StatusAt(start, now time.Time) Status {
	if start.Before(now.In(start.Location())) {
		return StatusDone
	}
	return StatusPending
}

// Invitation is one parsed meeting invite. It is never modified after it
// has been stored.
type Invitation struct {
	ID              int64
	Subject         string
	Body            string
	MeetingDate     time.Time
	DurationMinutes int
	Recurrence      meeting.Recurrence
	Status          Status
	Owner           *profiles.Profile
	Attendees       []*profiles.Profile
	CreatedAt       time.Time
}

// DurationMinutes rounds d to the nearest whole minute.
func DurationMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// AttendeeUserIDs returns the attendees' userids in stored order.
func (inv *Invitation) AttendeeUserIDs() []string {
	userIDs := make([]string, 0, len(inv.Attendees))
	for _, p := range inv.Attendees {
		userIDs = append(userIDs, p.UserID)
	}
	return userIDs
}

// End returns when the first occurrence ends.
func (inv *Invitation) End() time.Time {
	return inv.MeetingDate.Add(time.Duration(inv.DurationMinutes) * time.Minute)
}
