package scope

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "agripass/pkg/domain-errors"
)

type CatalogSuite struct {
	suite.Suite
	catalog *Catalog
}

func (s *CatalogSuite) SetupTest() {
	s.catalog = Default()
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) TestParse() {
	s.Run("accepts catalog scopes", func() {
		for _, raw := range []string{"identity_basics", "farm_profile", "season_history", "inputs_received", "contact_details"} {
			parsed, err := s.catalog.Parse(raw)
			s.Require().NoError(err)
			s.Equal(raw, parsed.String())
		}
	})

	s.Run("rejects unknown scope with offending ID attached", func() {
		_, err := s.catalog.Parse("bank_details")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidScope))
		s.Equal("bank_details", dErrors.FieldsOf(err)["scope"])
	})
}

func (s *CatalogSuite) TestParseSet() {
	s.Run("rejects the empty set", func() {
		_, err := s.catalog.ParseSet(nil)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyScopeSet))
	})

	s.Run("deduplicates and sorts", func() {
		scopes, err := s.catalog.ParseSet([]string{"season_history", "identity_basics", "season_history"})
		s.Require().NoError(err)
		s.Equal([]Scope{IdentityBasics, SeasonHistory}, scopes)
	})

	s.Run("one bad member fails the whole set", func() {
		_, err := s.catalog.ParseSet([]string{"identity_basics", "nope"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidScope))
	})
}

func (s *CatalogSuite) TestFieldsFor() {
	s.Run("resolves the union of selectors", func() {
		fields := s.catalog.FieldsFor([]Scope{IdentityBasics, FarmProfile})
		s.True(fields[FieldFullName])
		s.True(fields[FieldLandSizeBand])
		s.False(fields[FieldPhone])
		s.False(fields[FieldSeasons])
	})

	s.Run("empty scope set selects nothing", func() {
		s.Empty(s.catalog.FieldsFor(nil))
	})

	s.Run("farm profile bands land size rather than exposing hectares", func() {
		fields := s.catalog.FieldsFor([]Scope{FarmProfile})
		s.True(fields[FieldLandSizeBand])
		s.False(fields["land_size_ha"])
	})
}
