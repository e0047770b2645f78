package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "agripass/pkg/domain-errors"
)

type IDsSuite struct {
	suite.Suite
}

func TestIDsSuite(t *testing.T) {
	suite.Run(t, new(IDsSuite))
}

func (s *IDsSuite) TestParseSubjectID() {
	s.Run("accepts well-formed Agri-IDs", func() {
		id, err := ParseSubjectID("AGR-SN-10548")
		s.Require().NoError(err)
		s.Equal("AGR-SN-10548", id.String())
	})

	s.Run("rejects empty input", func() {
		_, err := ParseSubjectID("")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects malformed IDs", func() {
		for _, bad := range []string{
			"AGR-SN-1054",    // four digits
			"AGR-SN-105480",  // six digits
			"AGR-sn-10548",   // lowercase region
			"AGRSN10548",     // missing separators
			"XYZ-SN-10548",   // wrong prefix
			"AGR-SEN-10548",  // three-letter region
			" AGR-SN-10548",  // leading space
			"AGR-SN-10548\n", // trailing newline
		} {
			_, err := ParseSubjectID(bad)
			s.Errorf(err, "expected %q to be rejected", bad)
		}
	})
}

func (s *IDsSuite) TestParseRequesterID() {
	id, err := ParseRequesterID("sp-1")
	s.Require().NoError(err)
	s.Equal("sp-1", id.String())

	_, err = ParseRequesterID("")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *IDsSuite) TestParseConsentRequestID() {
	s.Run("round-trips a UUID", func() {
		raw := uuid.New()
		id, err := ParseConsentRequestID(raw.String())
		s.Require().NoError(err)
		s.Equal(raw.String(), id.String())
	})

	s.Run("rejects non-UUID input", func() {
		_, err := ParseConsentRequestID("cr-1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *IDsSuite) TestRequesterType() {
	for _, valid := range []string{"bank", "insurance", "government", "ngo"} {
		t, err := ParseRequesterType(valid)
		s.Require().NoError(err)
		s.Equal(valid, t.String())
	}

	_, err := ParseRequesterType("cooperative")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseRequesterType("")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
