package invitations

import (
	"context"
	"errors"
	"sync"

	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/profiles"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory Store. Writes become visible on Commit only.
type memStore struct {
	mu          sync.Mutex
	profiles    []profiles.Profile
	invitations []*Invitation
	nextID      int64

	failOn    string
	begins    int
	commits   int
	rollbacks int
}

func newMemStore(existing ...profiles.Profile) *memStore {
	s := &memStore{nextID: 100}
	s.profiles = append(s.profiles, existing...)
	return s
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	if s.failOn == "begin" {
		return nil, errStoreDown
	}
	return &memTx{store: s}, nil
}

func (s *memStore) userIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.UserID)
	}
	return out
}

func (s *memStore) GetInvitation(ctx context.Context, id int64) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, ErrInvitationNotFound
}

type memTx struct {
	store      *memStore
	profiles   []profiles.Profile
	invitation *Invitation
	closed     bool
}

func (t *memTx) ListProfiles(ctx context.Context) ([]profiles.Profile, error) {
	if t.store.failOn == "list" {
		return nil, errStoreDown
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return append([]profiles.Profile(nil), t.store.profiles...), nil
}

func (t *memTx) CreateProfile(ctx context.Context, userID string) (int64, error) {
	if t.store.failOn == "profile" {
		return 0, errStoreDown
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.nextID++
	t.profiles = append(t.profiles, profiles.Profile{ID: t.store.nextID, UserID: userID})
	return t.store.nextID, nil
}

func (t *memTx) CreateInvitation(ctx context.Context, inv *Invitation) (int64, error) {
	if t.store.failOn == "invitation" {
		return 0, errStoreDown
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.nextID++
	t.invitation = inv
	return t.store.nextID, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.store.failOn == "commit" {
		return errStoreDown
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.commits++
	t.store.profiles = append(t.store.profiles, t.profiles...)
	if t.invitation != nil {
		t.store.invitations = append(t.store.invitations, t.invitation)
	}
	t.closed = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.closed {
		return nil
	}
	t.store.rollbacks++
	t.closed = true
	return nil
}

type memRecorder struct {
	reports []errorlog.Report
	err     error
}

func (r *memRecorder) Record(ctx context.Context, report errorlog.Report) error {
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, report)
	return nil
}
