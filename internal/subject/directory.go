package subject

import (
	"context"

	id "agripass/pkg/domain"
)

// Directory is the read-only port to the upstream Identity Directory.
type Directory interface {
	FindByID(ctx context.Context, subjectID id.SubjectID) (Subject, error)
	Exists(ctx context.Context, subjectID id.SubjectID) (bool, error)
}

// Registrar is the write side used only by the Identity Issuer when binding a
// freshly allocated Agri-ID to an enrollment.
type Registrar interface {
	Register(ctx context.Context, subject Subject) error
}
