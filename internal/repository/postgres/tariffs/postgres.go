package tariffs

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	tariffsdomain "lab-catalog-go/internal/domain/tariffs"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(tariffsdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) ListTariffs(ctx context.Context) ([]tariffsdomain.Tariff, error) {
	var tariffs []tariffsdomain.Tariff
	if err := r.db.WithContext(ctx).
		Order("created_at asc").
		Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *PostgresRepository) GetTariffByID(ctx context.Context, tariffID string) (*tariffsdomain.Tariff, error) {
	var tariff tariffsdomain.Tariff
	if err := r.db.WithContext(ctx).
		Where("id = ?", tariffID).
		First(&tariff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tariffsdomain.ErrTariffNotFound
		}
		return nil, err
	}
	return &tariff, nil
}

func (r *PostgresRepository) GetTariffsByIDs(ctx context.Context, tariffIDs []string) ([]tariffsdomain.Tariff, error) {
	if len(tariffIDs) == 0 {
		return []tariffsdomain.Tariff{}, nil
	}
	var tariffs []tariffsdomain.Tariff
	if err := r.db.WithContext(ctx).
		Where("id IN ?", tariffIDs).
		Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *PostgresRepository) CountTariffsByName(ctx context.Context, name string, kind tariffsdomain.Kind, excludeID string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&tariffsdomain.Tariff{}).
		Where("lower(name) = lower(?) AND kind = ?", name, kind)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) CreateTariff(ctx context.Context, tariff *tariffsdomain.Tariff) error {
	return r.db.WithContext(ctx).Create(tariff).Error
}

func (r *PostgresRepository) UpdateTariff(ctx context.Context, tariff *tariffsdomain.Tariff) error {
	return r.db.WithContext(ctx).
		Model(&tariffsdomain.Tariff{}).
		Where("id = ?", tariff.ID).
		Updates(map[string]interface{}{
			"name":       tariff.Name,
			"kind":       tariff.Kind,
			"taxable":    tariff.Taxable,
			"updated_at": tariff.UpdatedAt,
		}).Error
}

func (r *PostgresRepository) SetTariffEnabled(ctx context.Context, tariffID string, enabled bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&tariffsdomain.Tariff{}).
		Where("id = ?", tariffID).
		Updates(map[string]interface{}{
			"enabled":    enabled,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) DeleteTariff(ctx context.Context, tariffID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&tariffsdomain.Tariff{}, "id = ?", tariffID)
	return result.RowsAffected > 0, result.Error
}

// UpsertPrice relies on the unique (tariff_id, exam_id) index: concurrent
// writers on the same pair resolve to last-committed-write-wins with no
// duplicate rows, and the surviving row keeps its original id.
func (r *PostgresRepository) UpsertPrice(ctx context.Context, entry *tariffsdomain.PriceEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tariff_id"}, {Name: "exam_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"price":      entry.Price,
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(entry).Error
}

func (r *PostgresRepository) DeletePrice(ctx context.Context, tariffID, examID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Delete(&tariffsdomain.PriceEntry{}, "tariff_id = ? AND exam_id = ?", tariffID, examID)
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) GetPrice(ctx context.Context, tariffID, examID string) (*tariffsdomain.PriceEntry, error) {
	var entry tariffsdomain.PriceEntry
	if err := r.db.WithContext(ctx).
		Where("tariff_id = ? AND exam_id = ?", tariffID, examID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tariffsdomain.ErrPriceNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresRepository) GetPricesByExamIDs(ctx context.Context, tariffID string, examIDs []string) ([]tariffsdomain.PriceEntry, error) {
	if len(examIDs) == 0 {
		return []tariffsdomain.PriceEntry{}, nil
	}
	var entries []tariffsdomain.PriceEntry
	if err := r.db.WithContext(ctx).
		Where("tariff_id = ? AND exam_id IN ?", tariffID, examIDs).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) ListPrices(ctx context.Context, tariffID string) ([]tariffsdomain.PriceEntry, error) {
	var entries []tariffsdomain.PriceEntry
	if err := r.db.WithContext(ctx).
		Where("tariff_id = ?", tariffID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) ListAllPrices(ctx context.Context) ([]tariffsdomain.PriceEntry, error) {
	var entries []tariffsdomain.PriceEntry
	if err := r.db.WithContext(ctx).
		Order("tariff_id asc, created_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) ListPricedExamIDs(ctx context.Context, tariffIDs []string) ([]string, error) {
	if len(tariffIDs) == 0 {
		return []string{}, nil
	}
	var examIDs []string
	if err := r.db.WithContext(ctx).
		Model(&tariffsdomain.PriceEntry{}).
		Where("tariff_id IN ?", tariffIDs).
		Distinct().
		Pluck("exam_id", &examIDs).Error; err != nil {
		return nil, err
	}
	return examIDs, nil
}

func (r *PostgresRepository) CountPricesByTariff(ctx context.Context, tariffID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&tariffsdomain.PriceEntry{}).
		Where("tariff_id = ?", tariffID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
