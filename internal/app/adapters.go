package app

import (
	"context"
	"errors"

	"lab-catalog-go/internal/domain/catalog"
	"lab-catalog-go/internal/domain/references"
	"lab-catalog-go/internal/domain/tariffs"
)

// The domain services talk to each other through small consumer-owned
// interfaces. These adapters bridge the gaps the repositories do not
// cover verbatim.

type referenceCheckerAdapter struct {
	repo references.Repository
}

func (a referenceCheckerAdapter) ListByDefaultTariff(ctx context.Context, tariffID string) ([]tariffs.TariffReference, error) {
	refs, err := a.repo.ListByDefaultTariff(ctx, tariffID)
	if err != nil {
		return nil, err
	}
	out := make([]tariffs.TariffReference, 0, len(refs))
	for _, ref := range refs {
		out = append(out, tariffs.TariffReference{ID: ref.ID, Name: ref.Name})
	}
	return out, nil
}

type tariffCheckerAdapter struct {
	repo tariffs.Repository
}

func (a tariffCheckerAdapter) TariffExists(ctx context.Context, tariffID string) (bool, error) {
	_, err := a.repo.GetTariffByID(ctx, tariffID)
	if errors.Is(err, tariffs.ErrTariffNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type legacyExamSourceAdapter struct {
	repo catalog.Repository
}

func (a legacyExamSourceAdapter) ExamExists(ctx context.Context, examID string) (bool, error) {
	return a.repo.ExamExists(ctx, examID)
}

func (a legacyExamSourceAdapter) ListLegacyPrices(ctx context.Context) ([]tariffs.LegacyExamPrice, error) {
	exams, err := a.repo.ListExams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tariffs.LegacyExamPrice, 0, len(exams))
	for _, exam := range exams {
		out = append(out, tariffs.LegacyExamPrice{
			ExamID:         exam.ID,
			Price:          exam.LegacyPrice,
			ReferencePrice: exam.LegacyReferencePrice,
		})
	}
	return out, nil
}
