package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

type failingStore struct {
	err error
}

func (f *failingStore) Append(context.Context, *Entry) error { return f.err }

func (f *failingStore) ListBySubject(context.Context, id.SubjectID, Page) ([]Entry, Cursor, error) {
	return nil, "", f.err
}

type failingIdem struct{}

func (failingIdem) Seen(context.Context, string) (bool, error) {
	return false, errors.New("idem backend down")
}

func (failingIdem) MarkApplied(context.Context, string, time.Duration) error {
	return errors.New("idem backend down")
}

// flakyStore fails the first failures appends, then recovers.
type flakyStore struct {
	*InMemoryStore
	failures int
}

func (f *flakyStore) Append(ctx context.Context, entry *Entry) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	return f.InMemoryStore.Append(ctx, entry)
}

type RecorderSuite struct {
	suite.Suite
	store   *InMemoryStore
	subject id.SubjectID
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = NewInMemoryStore()
	subject, err := id.ParseSubjectID("AGR-SN-10000")
	s.Require().NoError(err)
	s.subject = subject
}

func (s *RecorderSuite) entry(action Action) Entry {
	return Entry{
		SubjectID: s.subject,
		Action:    action,
		Actor:     "bank-of-sahel",
		ActorType: ActorTypeBank,
	}
}

func (s *RecorderSuite) TestRecordStampsTimestamp() {
	rec := NewRecorder(s.store)
	before := time.Now()

	s.Require().NoError(rec.Record(context.Background(), s.entry(ActionDataAccessed)))

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.False(entries[0].Timestamp.Before(before))
}

func (s *RecorderSuite) TestRecordFailsClosedOnStoreError() {
	rec := NewRecorder(&failingStore{err: errors.New("disk full")})

	err := rec.Record(context.Background(), s.entry(ActionConsentApproved))

	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
}

func (s *RecorderSuite) TestRecordRejectsIncompleteEntry() {
	rec := NewRecorder(s.store)

	s.Run("missing subject", func() {
		err := rec.Record(context.Background(), Entry{Action: ActionDataAccessed})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("missing action", func() {
		err := rec.Record(context.Background(), Entry{SubjectID: s.subject})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *RecorderSuite) TestRecordOnceSuppressesReplayAfterMark() {
	rec := NewRecorder(s.store, WithIdempotency(NewInMemoryIdempotencyStore()))
	key := IdempotencyKey("req-42", string(ActionConsentApproved), "fatou.agent")

	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved)))
	rec.MarkApplied(context.Background(), key)
	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved)))

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RecorderSuite) TestRecordOnceUnmarkedKeyDoesNotSuppress() {
	// Without a mark both calls must land: the first attempt may have failed
	// before its transaction committed.
	rec := NewRecorder(s.store, WithIdempotency(NewInMemoryIdempotencyStore()))
	key := IdempotencyKey("req-42", string(ActionConsentApproved), "fatou.agent")

	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved)))
	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved)))

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *RecorderSuite) TestRecordOnceRetryAfterFailedAppendStillLogs() {
	store := &flakyStore{InMemoryStore: s.store, failures: 1}
	rec := NewRecorder(store, WithIdempotency(NewInMemoryIdempotencyStore()))
	key := IdempotencyKey("req-42", string(ActionConsentApproved), "fatou.agent")

	err := rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))

	// The failed attempt must not have claimed the key; the retry appends.
	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionConsentApproved)))

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RecorderSuite) TestRecordOnceDistinctKeysBothLand() {
	rec := NewRecorder(s.store, WithIdempotency(NewInMemoryIdempotencyStore()))

	k1 := IdempotencyKey("req-1", string(ActionConsentApproved), "fatou.agent")
	k2 := IdempotencyKey("req-2", string(ActionConsentApproved), "fatou.agent")
	s.Require().NoError(rec.RecordOnce(context.Background(), k1, s.entry(ActionConsentApproved)))
	s.Require().NoError(rec.RecordOnce(context.Background(), k2, s.entry(ActionConsentApproved)))

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *RecorderSuite) TestRecordOnceDegradesWhenIdemUnavailable() {
	rec := NewRecorder(s.store, WithIdempotency(failingIdem{}))
	key := IdempotencyKey("req-42", string(ActionDataAccessed), "bank-of-sahel")

	s.Require().NoError(rec.RecordOnce(context.Background(), key, s.entry(ActionDataAccessed)))
	rec.MarkApplied(context.Background(), key)

	entries, _, err := rec.List(context.Background(), s.subject, Page{Limit: 10})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RecorderSuite) TestIdempotencyKeyIsStable() {
	a := IdempotencyKey("req-1", "Consent Approved", "fatou.agent")
	b := IdempotencyKey("req-1", "Consent Approved", "fatou.agent")
	c := IdempotencyKey("req-1", "Consent Denied", "fatou.agent")

	s.Equal(a, b)
	s.NotEqual(a, c)
}
