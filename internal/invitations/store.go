package invitations

import (
	"context"
	"errors"

	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/profiles"
)

var (
	// ErrPersistence wraps every storage failure during ingestion
	ErrPersistence = errors.New("persistence failure")

	// ErrInvitationNotFound is returned when an invitation id is unknown
	ErrInvitationNotFound = errors.New("invitation not found")
)

// Store opens the transaction one ingestion runs in.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a storage transaction. The profile seed read and all writes of one
// ingestion happen inside a single Tx.
type Tx interface {
	ListProfiles(ctx context.Context) ([]profiles.Profile, error)
	// CreateProfile stores a profile and returns its id. If another
	// transaction stored the same userid first, that row's id is returned.
	CreateProfile(ctx context.Context, userID string) (int64, error)
	CreateInvitation(ctx context.Context, inv *Invitation) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Reader loads stored invitations.
type Reader interface {
	GetInvitation(ctx context.Context, id int64) (*Invitation, error)
}

// ErrorRecorder appends durable error records.
type ErrorRecorder interface {
	Record(ctx context.Context, report errorlog.Report) error
}
