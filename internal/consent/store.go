package consent

import (
	"context"

	id "agripass/pkg/domain"
)

// Store persists consent requests. Update is a compare-and-swap on status so
// concurrent transitions on the same request cannot both land.
type Store interface {
	Create(ctx context.Context, req *ConsentRequest) error
	Get(ctx context.Context, requestID id.ConsentRequestID) (*ConsentRequest, error)
	// Update writes req only if the stored row is still in the from status.
	// Returns sentinel.ErrConflict when the CAS loses.
	Update(ctx context.Context, req *ConsentRequest, from Status) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*ConsentRequest, error)
	ListBySubjectRequester(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]*ConsentRequest, error)
}
