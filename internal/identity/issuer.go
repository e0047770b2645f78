// Package identity allocates Agri-IDs and binds them to offline-verifiable
// credentials.
package identity

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"agripass/internal/audit"
	"agripass/internal/platform/metrics"
	"agripass/internal/subject"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

// maxIssueAttempts bounds collision retries. The 90k-ID space per region makes
// a collision streak this long effectively impossible; hitting the bound means
// the namespace is exhausted or the directory is misbehaving, both fatal.
const maxIssueAttempts = 5

// EnrollmentFacts is what a field agent captures when enrolling a farmer.
type EnrollmentFacts struct {
	FirstName   string
	LastName    string
	Gender      string
	YearOfBirth int
	Phone       string
	Village     string
	Region      string
	Country     string
	Cooperative string
	Crops       []string
	LandSizeHa  float64
	EnrolledBy  string
}

// Issuance is the result of a successful enrollment.
type Issuance struct {
	SubjectID  id.SubjectID
	Credential string
}

// Issuer allocates Agri-IDs in the AGR-{REGION}-{5 digits} namespace, binds a
// credential, and registers the subject with the directory.
type Issuer struct {
	region      string
	directory   subject.Directory
	registrar   subject.Registrar
	credentials *CredentialService
	audit       *audit.Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// newCandidate is swappable in tests to force collisions.
	newCandidate func(region string) id.SubjectID
}

func NewIssuer(
	region string,
	directory subject.Directory,
	registrar subject.Registrar,
	credentials *CredentialService,
	recorder *audit.Recorder,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Issuer {
	return &Issuer{
		region:       strings.ToUpper(region),
		directory:    directory,
		registrar:    registrar,
		credentials:  credentials,
		audit:        recorder,
		logger:       logger,
		metrics:      m,
		newCandidate: newCandidate,
	}
}

// newCandidate derives a 5-digit identifier from fresh UUID entropy. IDs range
// 10000-99999 so they never carry a leading zero.
func newCandidate(region string) id.SubjectID {
	raw := uuid.New()
	n := binary.BigEndian.Uint32(raw[0:4])
	digits := 10000 + n%90000
	return id.SubjectID(fmt.Sprintf("AGR-%s-%05d", region, digits))
}

// Issue allocates a fresh Agri-ID, signs its credential, registers the subject
// as pending (identity confirmation happens upstream), and logs the creation.
// Collisions retry with a new candidate up to the bound, then fail.
//
// Errors: CodeInvalidInput, CodeIssuanceCollision, CodeAuditWriteFailed.
func (i *Issuer) Issue(ctx context.Context, facts EnrollmentFacts) (Issuance, error) {
	if strings.TrimSpace(facts.FirstName) == "" && strings.TrimSpace(facts.LastName) == "" {
		return Issuance{}, dErrors.New(dErrors.CodeInvalidInput, "enrollment requires a name")
	}

	subjectID, err := i.allocate(ctx)
	if err != nil {
		return Issuance{}, err
	}

	now := requestcontext.Now(ctx)
	credential, err := i.credentials.Issue(subjectID, i.region, now)
	if err != nil {
		return Issuance{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign credential")
	}

	record := subject.Subject{
		ID:          subjectID,
		FirstName:   facts.FirstName,
		LastName:    facts.LastName,
		Gender:      facts.Gender,
		YearOfBirth: facts.YearOfBirth,
		Phone:       facts.Phone,
		Village:     facts.Village,
		Region:      facts.Region,
		Country:     facts.Country,
		Cooperative: facts.Cooperative,
		Crops:       facts.Crops,
		LandSizeHa:  facts.LandSizeHa,
		Status:      subject.StatusPending,
		EnrolledAt:  now,
		EnrolledBy:  facts.EnrolledBy,
	}

	if err := i.recordCreation(ctx, subjectID, facts.EnrolledBy); err != nil {
		return Issuance{}, err
	}
	if err := i.registrar.Register(ctx, record); err != nil {
		return Issuance{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not register subject")
	}

	if i.metrics != nil {
		i.metrics.IdentitiesIssued.Inc()
	}
	i.logger.InfoContext(ctx, "identity issued",
		"subject_id", subjectID.String(),
		"region", i.region,
	)
	return Issuance{SubjectID: subjectID, Credential: credential}, nil
}

func (i *Issuer) allocate(ctx context.Context) (id.SubjectID, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		candidate := i.newCandidate(i.region)
		taken, err := i.directory.Exists(ctx, candidate)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
		}
		if !taken {
			return candidate, nil
		}
		if i.metrics != nil {
			i.metrics.IssuanceCollisions.Inc()
		}
		i.logger.WarnContext(ctx, "identifier collision, retrying",
			"candidate", candidate.String(),
			"attempt", attempt+1,
		)
	}
	return "", dErrors.NewWithFields(dErrors.CodeIssuanceCollision,
		"could not allocate a unique identifier",
		map[string]any{"attempts": maxIssueAttempts},
	)
}

func (i *Issuer) recordCreation(ctx context.Context, subjectID id.SubjectID, enrolledBy string) error {
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = enrolledBy
	}
	if actor == "" {
		actor = "system"
	}
	actorType := audit.ActorType(requestcontext.ActorType(ctx))
	if actorType == "" {
		actorType = audit.ActorTypeAgent
	}
	return i.audit.Record(ctx, audit.Entry{
		SubjectID: subjectID,
		Action:    audit.ActionIdentityCreated,
		Actor:     actor,
		ActorType: actorType,
		Timestamp: requestcontext.Now(ctx),
		Details:   "Agri-ID allocated and credential bound",
		RequestID: requestcontext.RequestID(ctx),
	})
}
