package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemoryStore
	subject id.SubjectID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	subject, err := id.ParseSubjectID("AGR-SN-10000")
	s.Require().NoError(err)
	s.subject = subject
}

func (s *InMemoryStoreSuite) appendAt(ts time.Time, action Action) Entry {
	entry := Entry{
		SubjectID: s.subject,
		Action:    action,
		Actor:     "fatou.agent",
		ActorType: ActorTypeAgent,
		Timestamp: ts,
	}
	s.Require().NoError(s.store.Append(context.Background(), &entry))
	return entry
}

func (s *InMemoryStoreSuite) TestAppendAssignsMonotonicSeq() {
	now := time.Now()
	first := s.appendAt(now, ActionConsentRequested)
	second := s.appendAt(now, ActionConsentApproved)

	s.Less(first.Seq, second.Seq)
	s.False(first.ID.IsNil())
	s.False(second.ID.IsNil())
}

func (s *InMemoryStoreSuite) TestAppendRejectsMissingSubject() {
	err := s.store.Append(context.Background(), &Entry{Action: ActionDataAccessed})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *InMemoryStoreSuite) TestListOrdersOldestFirst() {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.appendAt(base.Add(2*time.Minute), ActionDataAccessed)
	s.appendAt(base, ActionConsentRequested)
	s.appendAt(base.Add(time.Minute), ActionConsentApproved)

	entries, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Empty(cursor)
	s.Require().Len(entries, 3)
	s.Equal(ActionConsentRequested, entries[0].Action)
	s.Equal(ActionConsentApproved, entries[1].Action)
	s.Equal(ActionDataAccessed, entries[2].Action)
}

func (s *InMemoryStoreSuite) TestListBreaksTimestampTiesBySeq() {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	first := s.appendAt(ts, ActionConsentRequested)
	second := s.appendAt(ts, ActionConsentApproved)

	entries, _, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(first.Seq, entries[0].Seq)
	s.Equal(second.Seq, entries[1].Seq)
}

func (s *InMemoryStoreSuite) TestPaginationResumesFromCursor() {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.appendAt(base.Add(time.Duration(i)*time.Second), ActionDataAccessed)
	}

	page1, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page1, 2)
	s.NotEmpty(cursor)

	page2, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 2, Cursor: cursor})
	s.Require().NoError(err)
	s.Require().Len(page2, 2)
	s.NotEmpty(cursor)

	page3, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 2, Cursor: cursor})
	s.Require().NoError(err)
	s.Require().Len(page3, 1)
	s.Empty(cursor)

	seen := map[uint64]bool{}
	for _, e := range append(append(page1, page2...), page3...) {
		s.False(seen[e.Seq], "entry repeated across pages")
		seen[e.Seq] = true
	}
}

func (s *InMemoryStoreSuite) TestPaginationKeepsEntriesWhenSeqAndTimestampDisagree() {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	later := s.appendAt(base.Add(time.Second), ActionConsentApproved)
	earlier := s.appendAt(base, ActionConsentRequested)

	page1, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(page1, 1)
	s.Equal(earlier.Seq, page1[0].Seq)
	s.Require().NotEmpty(cursor)

	page2, cursor, err := s.store.ListBySubject(context.Background(), s.subject, Page{Limit: 1, Cursor: cursor})
	s.Require().NoError(err)
	s.Require().Len(page2, 1)
	s.Equal(later.Seq, page2[0].Seq)
	s.Empty(cursor)
}

func (s *InMemoryStoreSuite) TestListRejectsMalformedCursor() {
	_, _, err := s.store.ListBySubject(context.Background(), s.subject, Page{Cursor: "not-a-seq"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *InMemoryStoreSuite) TestListScopedToSubject() {
	other, err := id.ParseSubjectID("AGR-SN-10137")
	s.Require().NoError(err)

	s.appendAt(time.Now(), ActionConsentRequested)
	entry := Entry{SubjectID: other, Action: ActionIdentityCreated, Timestamp: time.Now()}
	s.Require().NoError(s.store.Append(context.Background(), &entry))

	entries, _, err := s.store.ListBySubject(context.Background(), other, Page{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(ActionIdentityCreated, entries[0].Action)
}
