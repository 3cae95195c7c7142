package invitations

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/frankbot/frank/internal/apperrors"
	"github.com/frankbot/frank/internal/envelope"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// IncomingRoute names the intake endpoint in error reports.
const IncomingRoute = "calendar /invites/incoming"

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files. The total is still capped by MaxBytesReader.
const multipartMemory = 1 << 20

// Ingester stores one inbound message as an invitation.
type Ingester interface {
	Ingest(ctx context.Context, route string, msg InboundMessage) (*Invitation, error)
}

// IncomingResponse is returned after a successful ingestion.
type IncomingResponse struct {
	Status int    `json:"status"`
	ID     int64  `json:"id"`
	URL    string `json:"url"`
}

// HandleIncoming handles POST /calendar/invites/incoming
func HandleIncoming(ingester Ingester, baseURL string, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		if err := parseForm(r); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
				apperrors.WritePayloadTooLarge(w, r, fmt.Sprintf("Message exceeds maximum size of %d bytes", maxBodyBytes))
				return
			}
			apperrors.WriteBadRequest(w, r, "Failed to parse form data")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		msg := MessageFromForm(r.PostForm)
		inv, err := ingester.Ingest(r.Context(), IncomingRoute, msg)
		if err != nil {
			writeIngestError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, IncomingResponse{
			Status: 1,
			ID:     inv.ID,
			URL:    InvitationURL(baseURL, inv.ID),
		})
	}
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

func writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidMessageError
	var parseErr *meeting.ParseError

	switch {
	case errors.As(err, &invalid):
		apperrors.WriteErrorDetails(w, r, http.StatusBadRequest, "invalid_message", "Inbound message is missing required fields", invalid.Fields)
	case errors.Is(err, envelope.ErrMissingSender):
		apperrors.WriteError(w, r, http.StatusBadRequest, "invalid_message", "Inbound message has no sender address")
	case errors.As(err, &parseErr):
		details := map[string]string{"reason": parseErr.Reason}
		if parseErr.Line != "" {
			details["line"] = parseErr.Line
		}
		apperrors.WriteErrorDetails(w, r, http.StatusBadRequest, meeting.KindName(err), parseErr.Error(), details)
	default:
		apperrors.WriteInternalError(w, r, "Failed to create invitation")
	}
}

// InvitationView is the JSON form of a stored invitation.
type InvitationView struct {
	ID              int64     `json:"id"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	Status          string    `json:"status"`
	MeetingDate     time.Time `json:"meeting_date"`
	DurationMinutes int       `json:"duration"`
	End             time.Time `json:"end"`
	Recur           string    `json:"recur"`
	RecurParam      string    `json:"recur_param,omitempty"`
	Owner           string    `json:"owner"`
	Attendees       []string  `json:"attendees"`
	CreatedAt       time.Time `json:"created_at"`
	ICSURL          string    `json:"ics_url"`
}

// NewInvitationView builds the JSON view of inv.
func NewInvitationView(inv *Invitation, baseURL string) InvitationView {
	view := InvitationView{
		ID:              inv.ID,
		Subject:         inv.Subject,
		Body:            inv.Body,
		Status:          inv.Status.String(),
		MeetingDate:     inv.MeetingDate,
		DurationMinutes: inv.DurationMinutes,
		End:             inv.End(),
		Recur:           string(meeting.RecurNone),
		Attendees:       inv.AttendeeUserIDs(),
		CreatedAt:       inv.CreatedAt,
		ICSURL:          InvitationURL(baseURL, inv.ID) + "/invite.ics",
	}
	if inv.Recurrence != nil {
		view.Recur = string(inv.Recurrence.Kind())
		view.RecurParam = inv.Recurrence.Param()
	}
	if inv.Owner != nil {
		view.Owner = inv.Owner.UserID
	}
	return view
}

// HandleShow handles GET /calendar/invites/{invite_id}
func HandleShow(reader Reader, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(w, r, reader)
		if !ok {
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, NewInvitationView(inv, baseURL))
	}
}

// HandleICS handles GET /calendar/invites/{invite_id}/invite.ics
func HandleICS(reader Reader, opts ICSOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(w, r, reader)
		if !ok {
			return
		}

		body, err := ToICS(inv, opts, time.Now())
		if err != nil {
			log.Error().Err(err).Int64("invitation_id", inv.ID).Msg("Failed to render invitation calendar")
			apperrors.WriteInternalError(w, r, "Failed to render calendar")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invitation-%d.ics"`, inv.ID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func loadInvitation(w http.ResponseWriter, r *http.Request, reader Reader) (*Invitation, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "invite_id"), 10, 64)
	if err != nil || id <= 0 {
		apperrors.WriteNotFound(w, r, "Invitation not found")
		return nil, false
	}

	inv, err := reader.GetInvitation(r.Context(), id)
	if errors.Is(err, ErrInvitationNotFound) {
		apperrors.WriteNotFound(w, r, "Invitation not found")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Int64("invitation_id", id).Msg("Failed to load invitation")
		apperrors.WriteInternalError(w, r, "Failed to load invitation")
		return nil, false
	}
	return inv, true
}
