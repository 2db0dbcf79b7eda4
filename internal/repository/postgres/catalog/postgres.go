package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	catalogdomain "lab-catalog-go/internal/domain/catalog"
)

// PostgresRepository reads the externally-owned exams table. No write
// methods on purpose.
type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetExamByID(ctx context.Context, examID string) (*catalogdomain.Exam, error) {
	var exam catalogdomain.Exam
	if err := r.db.WithContext(ctx).
		Where("id = ?", examID).
		First(&exam).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogdomain.ErrExamNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (r *PostgresRepository) ExamExists(ctx context.Context, examID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalogdomain.Exam{}).
		Where("id = ?", examID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) ListExams(ctx context.Context) ([]catalogdomain.Exam, error) {
	var exams []catalogdomain.Exam
	if err := r.db.WithContext(ctx).
		Order("name asc").
		Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *PostgresRepository) ListExamsByIDs(ctx context.Context, examIDs []string) ([]catalogdomain.Exam, error) {
	if len(examIDs) == 0 {
		return []catalogdomain.Exam{}, nil
	}
	var exams []catalogdomain.Exam
	if err := r.db.WithContext(ctx).
		Where("id IN ?", examIDs).
		Order("name asc").
		Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *PostgresRepository) ListExamIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&catalogdomain.Exam{}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresRepository) ListPublicExamIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&catalogdomain.Exam{}).
		Where("is_public_visible = true").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
