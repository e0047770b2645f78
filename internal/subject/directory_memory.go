package subject

import (
	"context"
	"sync"

	id "agripass/pkg/domain"
	"agripass/pkg/platform/sentinel"
)

// InMemoryDirectory keeps the initial implementation lightweight and testable.
// It intentionally favors clarity over performance.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	subjects map[id.SubjectID]Subject
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{subjects: make(map[id.SubjectID]Subject)}
}

func (d *InMemoryDirectory) FindByID(_ context.Context, subjectID id.SubjectID) (Subject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.subjects[subjectID]; ok {
		return s, nil
	}
	return Subject{}, sentinel.ErrNotFound
}

func (d *InMemoryDirectory) Exists(_ context.Context, subjectID id.SubjectID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.subjects[subjectID]
	return ok, nil
}

func (d *InMemoryDirectory) Register(_ context.Context, subject Subject) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subjects[subject.ID]; ok {
		return sentinel.ErrConflict
	}
	d.subjects[subject.ID] = subject
	return nil
}
