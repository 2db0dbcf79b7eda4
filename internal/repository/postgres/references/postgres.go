package references

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	referencesdomain "lab-catalog-go/internal/domain/references"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(referencesdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) ListReferences(ctx context.Context) ([]referencesdomain.Reference, error) {
	var references []referencesdomain.Reference
	if err := r.db.WithContext(ctx).
		Order("created_at asc").
		Find(&references).Error; err != nil {
		return nil, err
	}
	return references, nil
}

func (r *PostgresRepository) GetReferenceByID(ctx context.Context, referenceID string) (*referencesdomain.Reference, error) {
	var reference referencesdomain.Reference
	if err := r.db.WithContext(ctx).
		Where("id = ?", referenceID).
		First(&reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, referencesdomain.ErrReferenceNotFound
		}
		return nil, err
	}
	return &reference, nil
}

func (r *PostgresRepository) GetReferenceByName(ctx context.Context, name string) (*referencesdomain.Reference, error) {
	var reference referencesdomain.Reference
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, referencesdomain.ErrReferenceNotFound
		}
		return nil, err
	}
	return &reference, nil
}

func (r *PostgresRepository) ListByDefaultTariff(ctx context.Context, tariffID string) ([]referencesdomain.Reference, error) {
	var references []referencesdomain.Reference
	if err := r.db.WithContext(ctx).
		Where("default_tariff_id = ?", tariffID).
		Order("created_at asc").
		Find(&references).Error; err != nil {
		return nil, err
	}
	return references, nil
}

func (r *PostgresRepository) CountReferencesByName(ctx context.Context, name, excludeID string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&referencesdomain.Reference{}).
		Where("lower(name) = lower(?)", name)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) CreateReference(ctx context.Context, reference *referencesdomain.Reference) error {
	return r.db.WithContext(ctx).Create(reference).Error
}

func (r *PostgresRepository) UpdateReference(ctx context.Context, reference *referencesdomain.Reference) error {
	return r.db.WithContext(ctx).
		Model(&referencesdomain.Reference{}).
		Where("id = ?", reference.ID).
		Updates(map[string]interface{}{
			"name":              reference.Name,
			"business_name":     reference.BusinessName,
			"default_tariff_id": reference.DefaultTariffID,
			"updated_at":        reference.UpdatedAt,
		}).Error
}

func (r *PostgresRepository) SetReferenceActive(ctx context.Context, referenceID string, active bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&referencesdomain.Reference{}).
		Where("id = ?", referenceID).
		Updates(map[string]interface{}{
			"active":     active,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) DeleteReference(ctx context.Context, referenceID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&referencesdomain.Reference{}, "id = ?", referenceID)
	return result.RowsAffected > 0, result.Error
}

// AddMembership leans on the composite primary key: re-assigning an
// existing (user, reference) pair inserts nothing.
func (r *PostgresRepository) AddMembership(ctx context.Context, membership *referencesdomain.Membership) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(membership).Error
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, userID, referenceID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Delete(&referencesdomain.Membership{}, "user_id = ? AND reference_id = ?", userID, referenceID)
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) DeleteMembershipsByReference(ctx context.Context, referenceID string) error {
	return r.db.WithContext(ctx).
		Delete(&referencesdomain.Membership{}, "reference_id = ?", referenceID).Error
}

// ListReferencesByUser preserves membership order (oldest assignment
// first); the price resolver's first-match rule depends on it.
func (r *PostgresRepository) ListReferencesByUser(ctx context.Context, userID string) ([]referencesdomain.Reference, error) {
	var references []referencesdomain.Reference
	if err := r.db.WithContext(ctx).
		Model(&referencesdomain.Reference{}).
		Joins(`join memberships on memberships.reference_id = "references".id`).
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at asc").
		Find(&references).Error; err != nil {
		return nil, err
	}
	return references, nil
}
