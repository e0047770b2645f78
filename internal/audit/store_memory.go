package audit

import (
	"context"
	"sort"
	"sync"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

// InMemoryStore keeps the trail in process memory. Entries are stored per
// subject in append order; a store-wide sequence number preserves ordering
// across subjects and between same-timestamp entries.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.SubjectID][]Entry
	seq     uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.SubjectID][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *Entry) error {
	if entry.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires a subject ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Seq = s.seq
	if entry.ID.IsNil() {
		entry.ID = id.NewAuditEntryID()
	}
	s.entries[entry.SubjectID] = append(s.entries[entry.SubjectID], *entry)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID, page Page) ([]Entry, Cursor, error) {
	afterTS, afterSeq, err := cursorPosition(page.Cursor)
	if err != nil {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	s.mu.RLock()
	all := append([]Entry{}, s.entries[subjectID]...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Seq < all[j].Seq
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	out := make([]Entry, 0, limit)
	for _, e := range all {
		if page.Cursor != "" && !afterPosition(e, afterTS, afterSeq) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}

	if len(out) == 0 || len(out) < limit {
		return out, "", nil
	}
	return out, positionCursor(out[len(out)-1]), nil
}

// Clear resets the store. Test helper only.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[id.SubjectID][]Entry)
	s.seq = 0
}
