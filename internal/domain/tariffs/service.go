package tariffs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceChecker reports which client groups use a tariff as their
// default. Wired from the references domain at composition time.
type ReferenceChecker interface {
	ListByDefaultTariff(ctx context.Context, tariffID string) ([]TariffReference, error)
}

// ExamSource is the read-only view of the externally-owned exam catalog
// this domain needs: existence checks for price writes and the legacy flat
// prices for the one-time import.
type ExamSource interface {
	ExamExists(ctx context.Context, examID string) (bool, error)
	ListLegacyPrices(ctx context.Context) ([]LegacyExamPrice, error)
}

type Service struct {
	repo  Repository
	refs  ReferenceChecker
	exams ExamSource
}

func NewService(repo Repository, refs ReferenceChecker, exams ExamSource) *Service {
	return &Service{repo: repo, refs: refs, exams: exams}
}

func (s *Service) ListTariffs(ctx context.Context) ([]Tariff, error) {
	return s.repo.ListTariffs(ctx)
}

func (s *Service) GetTariff(ctx context.Context, tariffID string) (*Tariff, error) {
	return s.repo.GetTariffByID(ctx, tariffID)
}

func (s *Service) CreateTariff(ctx context.Context, input CreateTariffInput) (*Tariff, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateKind(input.Kind); err != nil {
		return nil, err
	}

	count, err := s.repo.CountTariffsByName(ctx, name, input.Kind, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrTariffNameTaken
	}

	tariff := Tariff{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    input.Kind,
		Taxable: input.Taxable,
		Enabled: true,
	}
	if err := s.repo.CreateTariff(ctx, &tariff); err != nil {
		return nil, err
	}
	return &tariff, nil
}

func (s *Service) UpdateTariff(ctx context.Context, input UpdateTariffInput) (*Tariff, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateKind(input.Kind); err != nil {
		return nil, err
	}

	tariff, err := s.repo.GetTariffByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountTariffsByName(ctx, name, input.Kind, tariff.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrTariffNameTaken
	}

	tariff.Name = name
	tariff.Kind = input.Kind
	tariff.Taxable = input.Taxable
	tariff.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTariff(ctx, tariff); err != nil {
		return nil, err
	}
	return tariff, nil
}

// DeleteTariff blocks and reports when the tariff is still some reference's
// default tariff or still has ledger entries.
func (s *Service) DeleteTariff(ctx context.Context, tariffID string) error {
	if _, err := s.repo.GetTariffByID(ctx, tariffID); err != nil {
		return err
	}

	blockers, err := s.refs.ListByDefaultTariff(ctx, tariffID)
	if err != nil {
		return err
	}
	priceCount, err := s.repo.CountPricesByTariff(ctx, tariffID)
	if err != nil {
		return err
	}
	if len(blockers) > 0 || priceCount > 0 {
		return &TariffInUseError{TariffID: tariffID, References: blockers, PriceCount: priceCount}
	}

	deleted, err := s.repo.DeleteTariff(ctx, tariffID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTariffNotFound
	}
	return nil
}

func (s *Service) SetEnabled(ctx context.Context, tariffID string, enabled bool) error {
	updated, err := s.repo.SetTariffEnabled(ctx, tariffID, enabled)
	if err != nil {
		return err
	}
	if !updated {
		return ErrTariffNotFound
	}
	return nil
}

// SetPrice upserts the ledger entry for (tariffID, examID). Repeated calls
// for the same pair keep a single row and its original id.
func (s *Service) SetPrice(ctx context.Context, tariffID, examID string, price decimal.Decimal) (*PriceEntry, error) {
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if _, err := s.repo.GetTariffByID(ctx, tariffID); err != nil {
		return nil, err
	}
	exists, err := s.exams.ExamExists(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	entry := PriceEntry{
		ID:       uuid.NewString(),
		TariffID: tariffID,
		ExamID:   examID,
		Price:    price,
	}
	if err := s.repo.UpsertPrice(ctx, &entry); err != nil {
		return nil, err
	}

	// Re-read so the caller sees the stored row; on a conflicting write the
	// surviving id is the original one, not the id generated above.
	return s.repo.GetPrice(ctx, tariffID, examID)
}

func (s *Service) DeletePrice(ctx context.Context, tariffID, examID string) error {
	_, err := s.repo.DeletePrice(ctx, tariffID, examID)
	return err
}

func (s *Service) ListPrices(ctx context.Context, tariffID string) ([]PriceEntry, error) {
	if _, err := s.repo.GetTariffByID(ctx, tariffID); err != nil {
		return nil, err
	}
	return s.repo.ListPrices(ctx, tariffID)
}

func (s *Service) ListAllPrices(ctx context.Context) ([]PriceEntry, error) {
	return s.repo.ListAllPrices(ctx)
}

func (s *Service) Stats(ctx context.Context, tariffID string) (*Stats, error) {
	entries, err := s.ListPrices(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	stats := Stats{ExamCount: int64(len(entries))}
	if len(entries) == 0 {
		return &stats, nil
	}

	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Price)
	}
	stats.AvgPrice = sum.Div(decimal.NewFromInt(stats.ExamCount)).Round(2)
	return &stats, nil
}

// ImportLegacyPrices copies the flat pre-ledger exam prices into the ledger
// for one tariff. Exams that already have an entry for the tariff are left
// alone. Returns the number of entries written.
func (s *Service) ImportLegacyPrices(ctx context.Context, tariffID string, useReferencePrice bool) (int, error) {
	if _, err := s.repo.GetTariffByID(ctx, tariffID); err != nil {
		return 0, err
	}

	legacy, err := s.exams.ListLegacyPrices(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.ListPrices(ctx, tariffID)
		if err != nil {
			return err
		}
		priced := make(map[string]struct{}, len(existing))
		for _, entry := range existing {
			priced[entry.ExamID] = struct{}{}
		}

		for _, item := range legacy {
			if _, ok := priced[item.ExamID]; ok {
				continue
			}
			price := item.Price
			if useReferencePrice {
				price = item.ReferencePrice
			}
			if price == nil || price.IsNegative() {
				continue
			}
			entry := PriceEntry{
				ID:       uuid.NewString(),
				TariffID: tariffID,
				ExamID:   item.ExamID,
				Price:    *price,
			}
			if err := tx.UpsertPrice(ctx, &entry); err != nil {
				return fmt.Errorf("import exam %s: %w", item.ExamID, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	return name, nil
}

func validateKind(kind Kind) error {
	switch kind {
	case KindCost, KindSale:
		return nil
	default:
		return ErrInvalidKind
	}
}
