package profiles

import "sort"

// Profile is a deduplicated identity keyed by userid. ID is zero until the
// profile has been stored.
type Profile struct {
	ID     int64  `json:"id"`
	UserID string `json:"userid"`
}

// IsNew reports whether the profile has not been stored yet.
func (p *Profile) IsNew() bool {
	return p.ID == 0
}

// Index resolves userids to profile handles for one ingestion. It is seeded
// from stored profiles so that resolution agrees with storage.
type Index struct {
	byUserID map[string]*Profile
	created  []*Profile
}

// NewIndex builds an index over existing profiles.
func NewIndex(existing []Profile) *Index {
	idx := &Index{byUserID: make(map[string]*Profile, len(existing))}
	for i := range existing {
		p := existing[i]
		idx.byUserID[p.UserID] = &p
	}
	return idx
}

// Resolve returns the profile for userID, creating and indexing a new one
// the first time the id is seen. Repeated calls return the same handle.
func (idx *Index) Resolve(userID string) *Profile {
	if p, ok := idx.byUserID[userID]; ok {
		return p
	}
	p := &Profile{UserID: userID}
	idx.byUserID[userID] = p
	idx.created = append(idx.created, p)
	return p
}

// Lookup returns the profile for userID without creating one.
func (idx *Index) Lookup(userID string) (*Profile, bool) {
	p, ok := idx.byUserID[userID]
	return p, ok
}

// Created returns the profiles Resolve created, in creation order.
func (idx *Index) Created() []*Profile {
	return idx.created
}

// CreatedByUserID returns the created profiles sorted by userid. Inserting
// in this order makes concurrent transactions take unique-index locks in the
// same order.
func (idx *Index) CreatedByUserID() []*Profile {
	sorted := append([]*Profile(nil), idx.created...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })
	return sorted
}

// Len returns the number of indexed profiles.
func (idx *Index) Len() int {
	return len(idx.byUserID)
}
