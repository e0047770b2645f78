package identity

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"

	"agripass/internal/audit"
	"agripass/internal/subject"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

type IssuerSuite struct {
	suite.Suite
	directory  *subject.InMemoryDirectory
	auditStore *audit.InMemoryStore
	issuer     *Issuer
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.directory = subject.NewInMemoryDirectory()
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.issuer = NewIssuer("SN", s.directory, s.directory,
		NewCredentialService("test-signing-key", "agripass"),
		audit.NewRecorder(s.auditStore), logger, nil)
}

func (s *IssuerSuite) facts() EnrollmentFacts {
	return EnrollmentFacts{
		FirstName:  "Awa",
		LastName:   "Ba",
		Gender:     "female",
		Region:     "Kaolack",
		LandSizeHa: 1.2,
		EnrolledBy: "fatou.agent",
	}
}

func (s *IssuerSuite) TestIssueAllocatesWellFormedID() {
	issuance, err := s.issuer.Issue(context.Background(), s.facts())
	s.Require().NoError(err)

	s.Regexp(regexp.MustCompile(`^AGR-SN-\d{5}$`), issuance.SubjectID.String())
	s.NotEmpty(issuance.Credential)
}

func (s *IssuerSuite) TestIssueRegistersPendingSubject() {
	issuance, err := s.issuer.Issue(context.Background(), s.facts())
	s.Require().NoError(err)

	registered, err := s.directory.FindByID(context.Background(), issuance.SubjectID)
	s.Require().NoError(err)
	s.Equal(subject.StatusPending, registered.Status, "identity confirmation happens upstream")
	s.Equal("Awa Ba", registered.FullName())
	s.Equal("fatou.agent", registered.EnrolledBy)
}

func (s *IssuerSuite) TestIssueLogsCreation() {
	issuance, err := s.issuer.Issue(context.Background(), s.facts())
	s.Require().NoError(err)

	entries, _, err := s.auditStore.ListBySubject(context.Background(), issuance.SubjectID, audit.Page{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionIdentityCreated, entries[0].Action)
	s.Equal("fatou.agent", entries[0].Actor)
}

func (s *IssuerSuite) TestIssueRequiresName() {
	_, err := s.issuer.Issue(context.Background(), EnrollmentFacts{EnrolledBy: "fatou.agent"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *IssuerSuite) TestCollisionRetriesThenSucceeds() {
	taken := id.SubjectID("AGR-SN-10000")
	s.Require().NoError(s.directory.Register(context.Background(), subject.Subject{
		ID: taken, FirstName: "Mamadou", Status: subject.StatusActive,
	}))

	fresh := id.SubjectID("AGR-SN-20000")
	calls := 0
	s.issuer.newCandidate = func(string) id.SubjectID {
		calls++
		if calls < 3 {
			return taken
		}
		return fresh
	}

	issuance, err := s.issuer.Issue(context.Background(), s.facts())
	s.Require().NoError(err)
	s.Equal(fresh, issuance.SubjectID)
	s.Equal(3, calls)
}

func (s *IssuerSuite) TestCollisionExhaustionIsFatal() {
	taken := id.SubjectID("AGR-SN-10000")
	s.Require().NoError(s.directory.Register(context.Background(), subject.Subject{
		ID: taken, FirstName: "Mamadou", Status: subject.StatusActive,
	}))
	s.issuer.newCandidate = func(string) id.SubjectID { return taken }

	_, err := s.issuer.Issue(context.Background(), s.facts())
	s.True(dErrors.HasCode(err, dErrors.CodeIssuanceCollision))
	s.Equal(maxIssueAttempts, dErrors.FieldsOf(err)["attempts"])
}

func (s *IssuerSuite) TestAuditFailureBlocksIssuance() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("SN", s.directory, s.directory,
		NewCredentialService("test-signing-key", "agripass"),
		audit.NewRecorder(failingAuditStore{}), logger, nil)

	_, err := issuer.Issue(context.Background(), s.facts())
	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, *audit.Entry) error {
	return dErrors.New(dErrors.CodeInternal, "storage exhausted")
}

func (failingAuditStore) ListBySubject(context.Context, id.SubjectID, audit.Page) ([]audit.Entry, audit.Cursor, error) {
	return nil, "", nil
}
