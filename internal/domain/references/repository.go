package references

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	ListReferences(ctx context.Context) ([]Reference, error)
	GetReferenceByID(ctx context.Context, referenceID string) (*Reference, error)
	GetReferenceByName(ctx context.Context, name string) (*Reference, error)
	ListByDefaultTariff(ctx context.Context, tariffID string) ([]Reference, error)
	CountReferencesByName(ctx context.Context, name, excludeID string) (int64, error)
	CreateReference(ctx context.Context, reference *Reference) error
	UpdateReference(ctx context.Context, reference *Reference) error
	SetReferenceActive(ctx context.Context, referenceID string, active bool) (bool, error)
	DeleteReference(ctx context.Context, referenceID string) (bool, error)

	// AddMembership must be conflict-safe: adding an existing pair is a no-op.
	AddMembership(ctx context.Context, membership *Membership) error
	DeleteMembership(ctx context.Context, userID, referenceID string) (bool, error)
	DeleteMembershipsByReference(ctx context.Context, referenceID string) error
	// ListReferencesByUser returns the user's references in membership
	// order (oldest assignment first); resolution depends on that order.
	ListReferencesByUser(ctx context.Context, userID string) ([]Reference, error)
}
