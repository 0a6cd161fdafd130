package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/mbox-contacts/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of core.Store
type MemoryStore struct {
	mu          sync.RWMutex
	occurrences []core.Occurrence
	contacts    map[string]core.CanonicalContact
	nextID      int64
	logger      *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]core.CanonicalContact),
		nextID:   1,
		logger:   logger,
	}
}

// InsertOccurrences appends occurrences
func (s *MemoryStore) InsertOccurrences(ctx context.Context, occurrences []core.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, occ := range occurrences {
		occ.ID = s.nextID
		s.nextID++
		occ.RawHeaderKeys = append([]string(nil), occ.RawHeaderKeys...)
		s.occurrences = append(s.occurrences, occ)
	}
	return nil
}

// UpdateMarkers rewrites the markers of every occurrence of the given emails
func (s *MemoryStore) UpdateMarkers(ctx context.Context, emails []string, update func(core.MarkerSet) core.MarkerSet) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		targets[e] = struct{}{}
	}

	changed := 0
	for i := range s.occurrences {
		if _, ok := targets[s.occurrences[i].Email]; !ok {
			continue
		}
		if next := update(s.occurrences[i].Markers); next != s.occurrences[i].Markers {
			s.occurrences[i].Markers = next
			changed++
		}
	}
	return changed, nil
}

// AllOccurrences returns every occurrence in insertion order
func (s *MemoryStore) AllOccurrences(ctx context.Context) ([]core.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Occurrence, len(s.occurrences))
	copy(out, s.occurrences)
	return out, nil
}

// OccurrencesByEmail returns the occurrences of one email in insertion order
func (s *MemoryStore) OccurrencesByEmail(ctx context.Context, email string) ([]core.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Occurrence
	for _, occ := range s.occurrences {
		if occ.Email == email {
			out = append(out, occ)
		}
	}
	return out, nil
}

// AggregateByEmail groups occurrences by email, ordered by email
func (s *MemoryStore) AggregateByEmail(ctx context.Context) ([]core.EmailAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byEmail := make(map[string]*core.EmailAggregate)
	for _, occ := range s.occurrences {
		agg, ok := byEmail[occ.Email]
		if !ok {
			agg = &core.EmailAggregate{Email: occ.Email}
			byEmail[occ.Email] = agg
		}
		agg.Occurrences++
		if occ.OccurredAt == nil {
			continue
		}
		if agg.FirstOccurrence == nil || occ.OccurredAt.Before(*agg.FirstOccurrence) {
			agg.FirstOccurrence = copyTime(*occ.OccurredAt)
		}
		if agg.LastOccurrence == nil || occ.OccurredAt.After(*agg.LastOccurrence) {
			agg.LastOccurrence = copyTime(*occ.OccurredAt)
		}
	}

	out := make([]core.EmailAggregate, 0, len(byEmail))
	for _, agg := range byEmail {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func copyTime(t time.Time) *time.Time {
	return &t
}

// GetContact returns the contact for an email
func (s *MemoryStore) GetContact(ctx context.Context, email string) (*core.CanonicalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &c, nil
}

// MergeContact applies merge to the stored contact under the write lock
func (s *MemoryStore) MergeContact(ctx context.Context, email string, merge core.MergeFunc) (core.MergeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *core.CanonicalContact
	if c, ok := s.contacts[email]; ok {
		existing = &c
	}
	merged, outcome := merge(existing)
	if outcome != core.MergeUnchanged {
		merged.Email = email
		s.contacts[email] = merged
	}
	return outcome, nil
}

// AllContacts returns every contact ordered by email
func (s *MemoryStore) AllContacts(ctx context.Context) ([]core.CanonicalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.CanonicalContact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Close releases nothing; the data is dropped with the store
func (s *MemoryStore) Close() error {
	s.logger.Debug("Closing memory store",
		zap.Int("occurrences", len(s.occurrences)),
		zap.Int("contacts", len(s.contacts)))
	return nil
}
