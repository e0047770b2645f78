//go:build integration

package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agripass/internal/scope"
	id "agripass/pkg/domain"
	"agripass/pkg/platform/sentinel"
	"agripass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	store   *PostgresStore
	subject id.SubjectID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T(), "../../migrations")
	s.store = NewPostgres(s.pg.DB)
	subject, err := id.ParseSubjectID("AGR-SN-10000")
	s.Require().NoError(err)
	s.subject = subject
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "consent_requests"))
}

func (s *PostgresStoreSuite) newRequest() *ConsentRequest {
	return &ConsentRequest{
		ID:            id.NewConsentRequestID(),
		SubjectID:     s.subject,
		RequesterID:   id.RequesterID("bank-of-sahel"),
		RequesterName: "Bank of Sahel",
		RequesterType: id.RequesterTypeBank,
		Scopes:        []scope.Scope{scope.FarmProfile, scope.IdentityBasics},
		Purpose:       "input credit assessment",
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	req := s.newRequest()
	s.Require().NoError(s.store.Create(context.Background(), req))

	got, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(req.SubjectID, got.SubjectID)
	s.Equal(req.Scopes, got.Scopes)
	s.Equal(StatusPending, got.Status)
	s.Nil(got.RespondedAt)
}

func (s *PostgresStoreSuite) TestCreateDuplicateIDConflicts() {
	req := s.newRequest()
	s.Require().NoError(s.store.Create(context.Background(), req))

	err := s.store.Create(context.Background(), req)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetUnknownID() {
	_, err := s.store.Get(context.Background(), id.NewConsentRequestID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateCAS() {
	req := s.newRequest()
	s.Require().NoError(s.store.Create(context.Background(), req))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(req.Approve(now))
	s.Require().NoError(s.store.Update(context.Background(), req, StatusPending))

	got, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, got.Status)
	s.Require().NotNil(got.RespondedAt)
	s.True(got.RespondedAt.Equal(now))

	// A second writer still holding the pending view loses the CAS.
	stale := *req
	stale.Status = StatusDenied
	err = s.store.Update(context.Background(), &stale, StatusPending)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListBySubjectRequesterFilters() {
	mine := s.newRequest()
	s.Require().NoError(s.store.Create(context.Background(), mine))

	other := s.newRequest()
	other.ID = id.NewConsentRequestID()
	other.RequesterID = id.RequesterID("harvest-insurance")
	s.Require().NoError(s.store.Create(context.Background(), other))

	reqs, err := s.store.ListBySubjectRequester(context.Background(), s.subject, mine.RequesterID)
	s.Require().NoError(err)
	s.Require().Len(reqs, 1)
	s.Equal(mine.ID, reqs[0].ID)

	all, err := s.store.ListBySubject(context.Background(), s.subject)
	s.Require().NoError(err)
	s.Len(all, 2)
}
