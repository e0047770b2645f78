package consent

import (
	"context"
	"sort"
	"sync"

	id "agripass/pkg/domain"
	"agripass/pkg/platform/sentinel"
)

// InMemoryStore keeps the ledger in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.ConsentRequestID]*ConsentRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.ConsentRequestID]*ConsentRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req *ConsentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID id.ConsentRequestID) (*ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, req *ConsentRequest, from Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != from {
		return sentinel.ErrConflict
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]*ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ConsentRequest
	for _, req := range s.requests {
		if req.SubjectID == subjectID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListBySubjectRequester(_ context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]*ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ConsentRequest
	for _, req := range s.requests {
		if req.SubjectID == subjectID && req.RequesterID == requesterID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(reqs []*ConsentRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID.String() < reqs[j].ID.String()
		}
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}
