// Package disclosure builds minimal views of subject records. The projector
// releases exactly the fields the granted scopes select, generalizing values
// where the catalog calls for a band instead of a precise figure.
package disclosure

import (
	"sort"

	"agripass/internal/scope"
	"agripass/internal/subject"
)

// Band labels for land size generalization. The exact hectares never leave the
// engine through the farm_profile scope.
const (
	LandBandSmall  = "Small (< 2 ha)"
	LandBandMedium = "Medium (2-5 ha)"
	LandBandLarge  = "Large (> 5 ha)"
)

// LandSizeBand generalizes hectares into the published bands. Boundaries are
// half-open: 2.0 ha is Medium, 5.0 ha is Large.
func LandSizeBand(ha float64) string {
	switch {
	case ha < 2:
		return LandBandSmall
	case ha < 5:
		return LandBandMedium
	default:
		return LandBandLarge
	}
}

// PartialView is the redacted projection of one subject. Fields holds only the
// attributes the granted scopes select; absent authorization means an absent
// key, never a zeroed value.
type PartialView struct {
	SubjectID      string         `json:"subject_id"`
	CatalogVersion string         `json:"catalog_version"`
	Scopes         []string       `json:"scopes"`
	Fields         map[string]any `json:"fields"`
}

// Empty reports whether the view discloses nothing.
func (v PartialView) Empty() bool {
	return len(v.Fields) == 0
}

// Project is a pure function from a subject record and a granted scope set to
// a partial view. Deterministic: the same inputs always produce the same view.
// An empty scope set yields an empty view, not an error; absence of data is
// the correct response to absence of authorization.
func Project(subj subject.Subject, granted []scope.Scope, catalog *scope.Catalog) PartialView {
	view := PartialView{
		SubjectID:      subj.ID.String(),
		CatalogVersion: catalog.Version(),
		Scopes:         sortedScopeNames(granted),
		Fields:         make(map[string]any),
	}

	for field := range catalog.FieldsFor(granted) {
		if value, ok := fieldValue(subj, field); ok {
			view.Fields[string(field)] = value
		}
	}
	return view
}

func sortedScopeNames(scopes []scope.Scope) []string {
	names := scope.Strings(scopes)
	sort.Strings(names)
	return names
}

// fieldValue resolves one catalog field against the subject record. Returns
// ok=false for fields the record has no value for, so a view never carries
// placeholder zeros.
func fieldValue(subj subject.Subject, field scope.FieldKey) (any, bool) {
	switch field {
	case scope.FieldFullName:
		return subj.FullName(), subj.FullName() != ""
	case scope.FieldGender:
		return subj.Gender, subj.Gender != ""
	case scope.FieldYearOfBirth:
		return subj.YearOfBirth, subj.YearOfBirth != 0
	case scope.FieldRegion:
		return subj.Region, subj.Region != ""
	case scope.FieldIdentityStatus:
		return string(subj.Status), subj.Status != ""
	case scope.FieldPhone:
		return subj.Phone, subj.Phone != ""
	case scope.FieldVillage:
		return subj.Village, subj.Village != ""
	case scope.FieldCrops:
		return subj.Crops, len(subj.Crops) > 0
	case scope.FieldLandSizeBand:
		return LandSizeBand(subj.LandSizeHa), true
	case scope.FieldCooperative:
		return subj.Cooperative, subj.Cooperative != ""
	case scope.FieldSeasons:
		return subj.Seasons, len(subj.Seasons) > 0
	case scope.FieldSeasonCount:
		return len(subj.Seasons), true
	case scope.FieldInputsReceived:
		return inputsAcrossSeasons(subj.Seasons), len(subj.Seasons) > 0
	default:
		return nil, false
	}
}

// inputsAcrossSeasons flattens the inputs of every season, deduplicated and
// sorted for deterministic output.
func inputsAcrossSeasons(seasons []subject.SeasonRecord) []string {
	seen := make(map[string]bool)
	for _, season := range seasons {
		for _, input := range season.InputsReceived {
			seen[input] = true
		}
	}
	out := make([]string, 0, len(seen))
	for input := range seen {
		out = append(out, input)
	}
	sort.Strings(out)
	return out
}
