package disclosure

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"agripass/internal/scope"
	"agripass/internal/subject"
)

type ProjectorSuite struct {
	suite.Suite
	catalog *scope.Catalog
	subj    subject.Subject
}

func TestProjectorSuite(t *testing.T) {
	suite.Run(t, new(ProjectorSuite))
}

func (s *ProjectorSuite) SetupTest() {
	s.catalog = scope.Default()
	fixtures := subject.Fixtures()
	s.Require().NotEmpty(fixtures)
	s.subj = fixtures[0]
}

func (s *ProjectorSuite) TestEmptyScopeSetYieldsEmptyView() {
	view := Project(s.subj, nil, s.catalog)

	s.True(view.Empty())
	s.Empty(view.Fields)
	s.Empty(view.Scopes)
	s.Equal(s.subj.ID.String(), view.SubjectID)
}

func (s *ProjectorSuite) TestIdentityBasicsFields() {
	view := Project(s.subj, []scope.Scope{scope.IdentityBasics}, s.catalog)

	s.Equal(s.subj.FullName(), view.Fields["full_name"])
	s.Equal(s.subj.Gender, view.Fields["gender"])
	s.Equal(s.subj.YearOfBirth, view.Fields["year_of_birth"])
	s.Equal(s.subj.Region, view.Fields["region"])
	s.Equal(string(s.subj.Status), view.Fields["identity_status"])

	s.NotContains(view.Fields, "phone", "contact data needs its own scope")
	s.NotContains(view.Fields, "land_size_band")
	s.NotContains(view.Fields, "seasons")
}

func (s *ProjectorSuite) TestFarmProfileBandsLandSize() {
	view := Project(s.subj, []scope.Scope{scope.FarmProfile}, s.catalog)

	s.Contains(view.Fields, "land_size_band")
	s.NotContains(view.Fields, "land_size_ha", "exact hectares never disclosed via farm_profile")
	s.Equal(s.subj.Crops, view.Fields["crops"])
	s.Equal(s.subj.Cooperative, view.Fields["cooperative"])
}

func (s *ProjectorSuite) TestLandSizeBandBoundaries() {
	cases := []struct {
		ha   float64
		want string
	}{
		{0, LandBandSmall},
		{1.9, LandBandSmall},
		{2.0, LandBandMedium},
		{3.5, LandBandMedium},
		{4.99, LandBandMedium},
		{5.0, LandBandLarge},
		{12.7, LandBandLarge},
	}
	for _, tc := range cases {
		s.Equal(tc.want, LandSizeBand(tc.ha), "ha=%v", tc.ha)
	}
}

func (s *ProjectorSuite) TestSeasonHistoryFields() {
	view := Project(s.subj, []scope.Scope{scope.SeasonHistory}, s.catalog)

	s.Equal(len(s.subj.Seasons), view.Fields["season_count"])
	s.Contains(view.Fields, "seasons")
	s.NotContains(view.Fields, "full_name")
}

func (s *ProjectorSuite) TestUnionAcrossScopes() {
	view := Project(s.subj, []scope.Scope{scope.IdentityBasics, scope.FarmProfile}, s.catalog)

	s.Contains(view.Fields, "full_name")
	s.Contains(view.Fields, "land_size_band")
	s.NotContains(view.Fields, "seasons")
}

func (s *ProjectorSuite) TestDeterministic() {
	scopes := []scope.Scope{scope.FarmProfile, scope.IdentityBasics, scope.SeasonHistory}

	first, err := json.Marshal(Project(s.subj, scopes, s.catalog))
	s.Require().NoError(err)
	second, err := json.Marshal(Project(s.subj, scopes, s.catalog))
	s.Require().NoError(err)

	s.Equal(string(first), string(second))
}

func (s *ProjectorSuite) TestScopeOrderIrrelevant() {
	a := Project(s.subj, []scope.Scope{scope.FarmProfile, scope.IdentityBasics}, s.catalog)
	b := Project(s.subj, []scope.Scope{scope.IdentityBasics, scope.FarmProfile}, s.catalog)

	s.Equal(a.Scopes, b.Scopes)
	s.Equal(a.Fields, b.Fields)
}

func (s *ProjectorSuite) TestInputsReceivedFlattened() {
	subj := s.subj
	subj.Seasons = []subject.SeasonRecord{
		{Year: 2023, Season: "rainy", InputsReceived: []string{"seeds", "fertilizer"}},
		{Year: 2024, Season: "rainy", InputsReceived: []string{"fertilizer", "training"}},
	}

	view := Project(subj, []scope.Scope{scope.InputsReceived}, s.catalog)

	s.Equal([]string{"fertilizer", "seeds", "training"}, view.Fields["inputs_received"])
}
