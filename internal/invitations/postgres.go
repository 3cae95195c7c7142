package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frankbot/frank/internal/meeting"
	"github.com/frankbot/frank/internal/profiles"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps profiles and invitations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Begin opens a read-committed transaction. Concurrent ingestions that
// create the same profile are reconciled by the upsert in CreateProfile.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ListProfiles(ctx context.Context) ([]profiles.Profile, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, userid FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (profiles.Profile, error) {
		var p profiles.Profile
		err := row.Scan(&p.ID, &p.UserID)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	return out, nil
}

func (t *pgTx) CreateProfile(ctx context.Context, userID string) (int64, error) {
	// The no-op update makes RETURNING yield the existing row when another
	// transaction committed the same userid after our seed read.
	query := `
		INSERT INTO profiles (userid)
		VALUES ($1)
		ON CONFLICT (userid) DO UPDATE SET userid = EXCLUDED.userid
		RETURNING id
	`
	var id int64
	if err := t.tx.QueryRow(ctx, query, userID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *pgTx) CreateInvitation(ctx context.Context, inv *Invitation) (int64, error) {
	if inv.Owner == nil || inv.Owner.IsNew() {
		return 0, errors.New("invitation owner has not been stored")
	}

	rec := inv.Recurrence
	if rec == nil {
		rec = meeting.NoRecurrence{}
	}
	rule, err := meeting.RRule(rec, inv.MeetingDate)
	if err != nil {
		return 0, fmt.Errorf("failed to build rrule: %w", err)
	}
	_, offset := inv.MeetingDate.Zone()

	query := `
		INSERT INTO invitations
			(subject, body, status, meeting_date, meeting_offset, duration, recur, recur_param, rrule, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	var id int64
	err = t.tx.QueryRow(ctx, query,
		inv.Subject,
		inv.Body,
		int(inv.Status),
		inv.MeetingDate,
		offset,
		inv.DurationMinutes,
		string(rec.Kind()),
		rec.Param(),
		rule,
		inv.Owner.ID,
	).Scan(&id, &inv.CreatedAt)
	if err != nil {
		return 0, err
	}

	for i, p := range inv.Attendees {
		if p.IsNew() {
			return 0, fmt.Errorf("attendee %q has not been stored", p.UserID)
		}
		_, err := t.tx.Exec(ctx, `
			INSERT INTO attendees (invitation_id, profile_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (invitation_id, profile_id) DO NOTHING
		`, id, p.ID, i)
		if err != nil {
			return 0, fmt.Errorf("failed to insert attendee %q: %w", p.UserID, err)
		}
	}

	return id, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// GetInvitation loads an invitation with its owner and attendees.
func (s *PostgresStore) GetInvitation(ctx context.Context, id int64) (*Invitation, error) {
	query := `
		SELECT i.id, i.subject, i.body, i.status, i.meeting_date, i.meeting_offset,
		       i.duration, i.recur, i.recur_param, i.created_at, p.id, p.userid
		FROM invitations i
		JOIN profiles p ON p.id = i.owner_id
		WHERE i.id = $1
	`

	inv := &Invitation{Owner: &profiles.Profile{}}
	var (
		status     int
		offset     int
		recur      string
		recurParam string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID,
		&inv.Subject,
		&inv.Body,
		&status,
		&inv.MeetingDate,
		&offset,
		&inv.DurationMinutes,
		&recur,
		&recurParam,
		&inv.CreatedAt,
		&inv.Owner.ID,
		&inv.Owner.UserID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invitation: %w", err)
	}

	inv.Status = Status(status)
	inv.MeetingDate = inv.MeetingDate.In(time.FixedZone("", offset))
	inv.Recurrence, err = meeting.DecodeRecurrence(recur, recurParam)
	if err != nil {
		return nil, fmt.Errorf("invitation %d: %w", inv.ID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.userid
		FROM attendees a
		JOIN profiles p ON p.id = a.profile_id
		WHERE a.invitation_id = $1
		ORDER BY a.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees: %w", err)
	}
	inv.Attendees, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*profiles.Profile, error) {
		p := &profiles.Profile{}
		err := row.Scan(&p.ID, &p.UserID)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attendees: %w", err)
	}

	return inv, nil
}
