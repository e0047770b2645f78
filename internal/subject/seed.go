package subject

import (
	"context"
	"time"

	id "agripass/pkg/domain"
)

// Seed loads a small deterministic set of subjects into a registrar. Used by
// the dev server and tests; there is no runtime randomness anywhere in the
// engine, so fixtures are spelled out in full.
func Seed(ctx context.Context, reg Registrar) error {
	for _, s := range Fixtures() {
		if err := reg.Register(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Fixtures returns the canonical test subjects.
func Fixtures() []Subject {
	enrolled := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return []Subject{
		{
			ID:          id.SubjectID("AGR-SN-10000"),
			FirstName:   "Mamadou",
			LastName:    "Diallo",
			Gender:      "M",
			YearOfBirth: 1975,
			Phone:       "+221 771234567",
			Village:     "Nioro du Rip",
			Region:      "Kaolack",
			Country:     "Senegal",
			Cooperative: "Coopérative Arachidière de Kaolack",
			Crops:       []string{"Groundnut", "Millet"},
			LandSizeHa:  3.0,
			Seasons: []SeasonRecord{
				{
					Year: 2024, Season: "Hivernage",
					Crops:          []string{"Groundnut", "Millet"},
					YieldKg:        2100,
					InputsReceived: []string{"Fertilizer (NPK)", "Certified Seeds"},
				},
				{
					Year: 2023, Season: "Hivernage",
					Crops:          []string{"Groundnut"},
					YieldKg:        1800,
					InputsReceived: []string{"Fertilizer (NPK)"},
				},
			},
			Status:     StatusActive,
			EnrolledAt: enrolled,
			EnrolledBy: "Agent Diallo",
		},
		{
			ID:          id.SubjectID("AGR-SN-10137"),
			FirstName:   "Fatou",
			LastName:    "Ndiaye",
			Gender:      "F",
			YearOfBirth: 1988,
			Phone:       "+221 765551234",
			Village:     "Mékhé",
			Region:      "Thiès",
			Country:     "Senegal",
			Cooperative: "GIE Téranga Thiès",
			Crops:       []string{"Onion"},
			LandSizeHa:  0.8,
			Seasons: []SeasonRecord{
				{
					Year: 2024, Season: "Hivernage",
					Crops:          []string{"Onion"},
					YieldKg:        650,
					InputsReceived: []string{"Irrigation Kit"},
				},
			},
			Status:     StatusPending,
			EnrolledAt: enrolled.AddDate(0, 2, 0),
			EnrolledBy: "Agent Ndiaye",
		},
		{
			ID:          id.SubjectID("AGR-SN-10274"),
			FirstName:   "Ousmane",
			LastName:    "Sow",
			Gender:      "M",
			YearOfBirth: 1963,
			Phone:       "+221 781119876",
			Village:     "Dagana",
			Region:      "Saint-Louis",
			Country:     "Senegal",
			Cooperative: "Union des Riziculteurs du Fleuve",
			Crops:       []string{"Rice", "Maize", "Onion"},
			LandSizeHa:  7.5,
			Seasons: []SeasonRecord{
				{
					Year: 2024, Season: "Hivernage",
					Crops:          []string{"Rice", "Maize"},
					YieldKg:        5200,
					InputsReceived: []string{"Fertilizer (NPK)", "Training"},
				},
				{
					Year: 2023, Season: "Hivernage",
					Crops:          []string{"Rice"},
					YieldKg:        4700,
					InputsReceived: []string{"Certified Seeds"},
				},
				{
					Year: 2022, Season: "Hivernage",
					Crops:          []string{"Rice"},
					YieldKg:        4100,
					InputsReceived: nil,
				},
			},
			Status:     StatusSuspended,
			EnrolledAt: enrolled.AddDate(-1, 0, 0),
			EnrolledBy: "Agent Diallo",
		},
	}
}
