// Package scope defines the closed catalog of data-access scopes. A scope is
// the unit of authorization: consent is granted per scope, and the disclosure
// projector only releases the fields its approved scopes select.
package scope

import (
	"sort"

	dErrors "agripass/pkg/domain-errors"
)

// Scope is a catalog-defined identifier, e.g. "farm_profile".
type Scope string

const (
	IdentityBasics Scope = "identity_basics"
	ContactDetails Scope = "contact_details"
	FarmProfile    Scope = "farm_profile"
	SeasonHistory  Scope = "season_history"
	InputsReceived Scope = "inputs_received"
)

func (s Scope) String() string { return string(s) }

// FieldKey names a single disclosable attribute of a subject record.
type FieldKey string

const (
	FieldFullName       FieldKey = "full_name"
	FieldGender         FieldKey = "gender"
	FieldYearOfBirth    FieldKey = "year_of_birth"
	FieldRegion         FieldKey = "region"
	FieldIdentityStatus FieldKey = "identity_status"
	FieldPhone          FieldKey = "phone"
	FieldVillage        FieldKey = "village"
	FieldCrops          FieldKey = "crops"
	FieldLandSizeBand   FieldKey = "land_size_band"
	FieldCooperative    FieldKey = "cooperative"
	FieldSeasons        FieldKey = "seasons"
	FieldSeasonCount    FieldKey = "season_count"
	FieldInputsReceived FieldKey = "inputs_received"
)

// Definition describes one scope: its human-readable semantics and the subject
// fields it exposes. Definitions are immutable; the catalog is closed.
type Definition struct {
	ID          Scope
	Description string
	Fields      []FieldKey
}

// Catalog maps scope identifiers to their definitions. The catalog carries a
// version so partial views can state which field mapping produced them.
type Catalog struct {
	version string
	defs    map[Scope]Definition
	order   []Scope
}

// Default returns the current catalog. Field selections follow the published
// scope descriptions: identity basics never include contact data, and the farm
// profile discloses the land size as a band, not the exact hectares.
func Default() *Catalog {
	return build("2024-11", []Definition{
		{
			ID:          IdentityBasics,
			Description: "Full name, gender, year of birth, region",
			Fields:      []FieldKey{FieldFullName, FieldGender, FieldYearOfBirth, FieldRegion, FieldIdentityStatus},
		},
		{
			ID:          ContactDetails,
			Description: "Phone number and village",
			Fields:      []FieldKey{FieldPhone, FieldVillage},
		},
		{
			ID:          FarmProfile,
			Description: "Crops grown, land size, cooperative membership",
			Fields:      []FieldKey{FieldCrops, FieldLandSizeBand, FieldCooperative},
		},
		{
			ID:          SeasonHistory,
			Description: "Past season yields and performance",
			Fields:      []FieldKey{FieldSeasons, FieldSeasonCount},
		},
		{
			ID:          InputsReceived,
			Description: "Subsidies, seeds, and inputs received",
			Fields:      []FieldKey{FieldInputsReceived},
		},
	})
}

func build(version string, defs []Definition) *Catalog {
	c := &Catalog{
		version: version,
		defs:    make(map[Scope]Definition, len(defs)),
		order:   make([]Scope, 0, len(defs)),
	}
	for _, def := range defs {
		c.defs[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Definitions returns all scope definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// Parse validates a single scope identifier against the catalog.
//
// Errors: CodeInvalidScope carrying the offending identifier. Unknown scopes
// are never silently ignored.
func (c *Catalog) Parse(raw string) (Scope, error) {
	s := Scope(raw)
	if _, ok := c.defs[s]; !ok {
		return "", dErrors.NewWithFields(dErrors.CodeInvalidScope,
			"unknown scope: "+raw, map[string]any{"scope": raw})
	}
	return s, nil
}

// ParseSet validates a full scope set, deduplicating and sorting it.
//
// Errors: CodeEmptyScopeSet when no scopes were given; CodeInvalidScope for
// the first unknown member.
func (c *Catalog) ParseSet(raw []string) ([]Scope, error) {
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyScopeSet, "scope set must not be empty")
	}
	seen := make(map[Scope]bool, len(raw))
	out := make([]Scope, 0, len(raw))
	for _, r := range raw {
		s, err := c.Parse(r)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// FieldsFor resolves the union of fields selected by the given scopes.
// Unknown scopes contribute nothing; validation happens at submit time.
func (c *Catalog) FieldsFor(scopes []Scope) map[FieldKey]bool {
	fields := make(map[FieldKey]bool)
	for _, s := range scopes {
		def, ok := c.defs[s]
		if !ok {
			continue
		}
		for _, f := range def.Fields {
			fields[f] = true
		}
	}
	return fields
}

// Strings converts a scope slice for logging and serialization.
func Strings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// FromStrings converts without validation. Use only for values already
// validated at a trust boundary (e.g. read back from the store).
func FromStrings(raw []string) []Scope {
	out := make([]Scope, len(raw))
	for i, r := range raw {
		out[i] = Scope(r)
	}
	return out
}
