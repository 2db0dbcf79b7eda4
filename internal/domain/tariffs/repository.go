package tariffs

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	ListTariffs(ctx context.Context) ([]Tariff, error)
	GetTariffByID(ctx context.Context, tariffID string) (*Tariff, error)
	GetTariffsByIDs(ctx context.Context, tariffIDs []string) ([]Tariff, error)
	CountTariffsByName(ctx context.Context, name string, kind Kind, excludeID string) (int64, error)
	CreateTariff(ctx context.Context, tariff *Tariff) error
	UpdateTariff(ctx context.Context, tariff *Tariff) error
	SetTariffEnabled(ctx context.Context, tariffID string, enabled bool) (bool, error)
	DeleteTariff(ctx context.Context, tariffID string) (bool, error)

	// UpsertPrice inserts the entry or, when a row for the same
	// (tariff_id, exam_id) pair exists, overwrites its price in place.
	// Must be a single conflict-resolving write, never read-then-write.
	UpsertPrice(ctx context.Context, entry *PriceEntry) error
	DeletePrice(ctx context.Context, tariffID, examID string) (bool, error)
	GetPrice(ctx context.Context, tariffID, examID string) (*PriceEntry, error)
	GetPricesByExamIDs(ctx context.Context, tariffID string, examIDs []string) ([]PriceEntry, error)
	ListPrices(ctx context.Context, tariffID string) ([]PriceEntry, error)
	ListAllPrices(ctx context.Context) ([]PriceEntry, error)
	ListPricedExamIDs(ctx context.Context, tariffIDs []string) ([]string, error)
	CountPricesByTariff(ctx context.Context, tariffID string) (int64, error)
}
