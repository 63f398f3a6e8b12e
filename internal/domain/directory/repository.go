package directory

import "context"

// Directory resolves and mirrors Customer and Vehicle master records.
//
// Resolve* return domain.NotFoundError for unknown ids.
type Directory interface {
	ResolveCustomerName(ctx context.Context, id string) (string, error)
	ResolveVehicleName(ctx context.Context, id string) (string, error)

	// ListActive returns the active records of a kind ordered by name.
	ListActive(ctx context.Context, kind Kind) ([]*Record, error)

	// Upsert inserts or replaces a record, reactivating it if archived.
	Upsert(ctx context.Context, record *Record) error

	// Archive marks a record archived. Unknown ids are ignored.
	Archive(ctx context.Context, kind Kind, id string) error
}
