package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

// Claims is the credential payload bound to an Agri-ID. The token is a signed
// compact JWT a verifier can check offline with only the shared key; no
// issuer round trip, which is what field devices with cached validity need.
type Claims struct {
	SubjectID string `json:"subject_id"`
	Region    string `json:"region"`
	jwt.RegisteredClaims
}

// CredentialService signs and verifies Agri-ID credentials.
type CredentialService struct {
	signingKey []byte
	issuer     string
}

func NewCredentialService(signingKey, issuer string) *CredentialService {
	return &CredentialService{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a credential for the subject. Credentials do not expire; an
// Agri-ID is revoked by suspending the subject upstream, not by token expiry.
func (s *CredentialService) Issue(subjectID id.SubjectID, region string, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SubjectID: subjectID.String(),
		Region:    region,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID.String(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
			Issuer:   s.issuer,
			ID:       uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Verify checks a credential offline and returns its claims.
//
// Errors: CodeUnauthorized for any invalid, tampered, or foreign token.
func (s *CredentialService) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "credential has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credential")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credential")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credential claims")
	}
	if _, err := id.ParseSubjectID(claims.SubjectID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential carries a malformed subject ID")
	}
	return claims, nil
}
