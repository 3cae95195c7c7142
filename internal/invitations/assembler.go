package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frankbot/frank/internal/envelope"
	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/frankbot/frank/internal/metrics"
	"github.com/frankbot/frank/internal/profiles"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const errorReportMessage = "error creating invitation"

// Assembler turns one inbound message into a stored Invitation.
type Assembler struct {
	store    Store
	recorder ErrorRecorder
	parser   *meeting.Parser
	ignored  map[string]struct{}
	now      func() time.Time
}

// NewAssembler creates an assembler. Recipients whose userid is in ignored
// are never added as attendees.
func NewAssembler(store Store, recorder ErrorRecorder, parser *meeting.Parser, ignored []string) *Assembler {
	if parser == nil {
		parser = meeting.NewParser(time.UTC)
	}
	set := make(map[string]struct{}, len(ignored))
	for _, userID := range ignored {
		set[userID] = struct{}{}
	}
	return &Assembler{
		store:    store,
		recorder: recorder,
		parser:   parser,
		ignored:  set,
		now:      time.Now,
	}
}

// IsClientError reports whether err was caused by the inbound message rather
// than by the service.
func IsClientError(err error) bool {
	var invalid *InvalidMessageError
	return meeting.IsParseError(err) ||
		errors.Is(err, envelope.ErrMissingSender) ||
		errors.As(err, &invalid)
}

// Ingest validates, parses and stores msg. route names the caller in error
// reports. Client errors return before any storage access. Storage failures
// roll back, leave an error report and come back wrapped in ErrPersistence.
func (a *Assembler) Ingest(ctx context.Context, route string, msg InboundMessage) (*Invitation, error) {
	inv, err := a.ingest(ctx, msg)
	switch {
	case err == nil:
		metrics.RecordIngestion(metrics.OutcomeCreated)
		return inv, nil
	case IsClientError(err):
		metrics.RecordIngestion(metrics.OutcomeClientError)
		if meeting.IsParseError(err) {
			metrics.RecordParseFailure(meeting.KindName(err))
			log.Warn().Err(err).Str("route", route).Str("error_kind", meeting.KindName(err)).Msg("Rejected unparseable invitation")
		} else {
			log.Warn().Err(err).Str("route", route).Msg("Rejected invalid inbound message")
		}
		return nil, err
	}

	metrics.RecordIngestion(metrics.OutcomeServerError)
	return nil, multierr.Append(err, a.report(ctx, route, err))
}

func (a *Assembler) ingest(ctx context.Context, msg InboundMessage) (_ *Invitation, err error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	ownerID, err := envelope.Owner(msg.From)
	if err != nil {
		return nil, err
	}
	recipientIDs := a.filterIgnored(envelope.Recipients(msg.To))

	mt, err := a.parser.ParseBody(msg.Body)
	if err != nil {
		return nil, err
	}

	tx, err := a.store.Begin(ctx)
	if err != nil {
		return nil, persistenceError("begin transaction", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	existing, err := tx.ListProfiles(ctx)
	if err != nil {
		return nil, persistenceError("list profiles", err)
	}
	index := profiles.NewIndex(existing)

	owner := index.Resolve(ownerID)

	seen := make(map[string]struct{}, len(recipientIDs)+len(a.ignored))
	for userID := range a.ignored {
		seen[userID] = struct{}{}
	}
	attendees := make([]*profiles.Profile, 0, len(recipientIDs))
	for _, userID := range recipientIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		attendees = append(attendees, index.Resolve(userID))
	}

	for _, text := range []string{msg.Subject, msg.Body} {
		for _, userID := range envelope.Mentions(text, seen) {
			attendees = append(attendees, index.Resolve(userID))
		}
	}

	inv := &Invitation{
		Subject:         msg.Subject,
		Body:            msg.Body,
		MeetingDate:     mt.Start,
		DurationMinutes: DurationMinutes(mt.Duration),
		Recurrence:      mt.Recurrence,
		Status:          StatusAt(mt.Start, a.now()),
		Owner:           owner,
		Attendees:       attendees,
	}

	for _, p := range index.CreatedByUserID() {
		id, err := tx.CreateProfile(ctx, p.UserID)
		if err != nil {
			return nil, persistenceError(fmt.Sprintf("create profile %q", p.UserID), err)
		}
		p.ID = id
	}

	id, err := tx.CreateInvitation(ctx, inv)
	if err != nil {
		return nil, persistenceError("create invitation", err)
	}
	inv.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, persistenceError("commit", err)
	}
	committed = true

	metrics.RecordProfilesCreated(len(index.Created()))

	log.Info().
		Int64("invitation_id", inv.ID).
		Str("owner", owner.UserID).
		Int("attendees", len(attendees)).
		Int("profiles_created", len(index.Created())).
		Str("recur", string(inv.Recurrence.Kind())).
		Msg("Invitation created")

	return inv, nil
}

// persistenceError wraps a storage failure in ErrPersistence and keeps the
// stack of the failing step for the error report.
func persistenceError(op string, err error) error {
	return errorlog.WithStack(fmt.Errorf("%w: %s: %w", ErrPersistence, op, err))
}

func (a *Assembler) filterIgnored(userIDs []string) []string {
	if len(a.ignored) == 0 {
		return userIDs
	}
	kept := userIDs[:0:0]
	for _, userID := range userIDs {
		if _, skip := a.ignored[userID]; !skip {
			kept = append(kept, userID)
		}
	}
	return kept
}

func (a *Assembler) report(ctx context.Context, route string, cause error) error {
	log.Error().Err(cause).Str("route", route).Msg("Failed to create invitation")

	if a.recorder == nil {
		return nil
	}
	report := errorlog.Report{
		Message: errorReportMessage,
		Route:   route,
		Stack:   errorlog.StackOf(cause),
		Meta:    map[string]any{"error": cause.Error()},
	}
	if err := a.recorder.Record(context.WithoutCancel(ctx), report); err != nil {
		log.Error().Err(err).Str("route", route).Msg("Failed to record error report")
		return fmt.Errorf("record error report: %w", err)
	}
	return nil
}
