package tariffs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	examID1 = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa1"
	examID2 = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa2"
	examID3 = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa3"
)

type fakeTariffsRepo struct {
	tariffs map[string]*Tariff
	prices  map[string]*PriceEntry
}

func newFakeTariffsRepo() *fakeTariffsRepo {
	return &fakeTariffsRepo{
		tariffs: make(map[string]*Tariff),
		prices:  make(map[string]*PriceEntry),
	}
}

func priceKey(tariffID, examID string) string {
	return tariffID + "|" + examID
}

func (r *fakeTariffsRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(r)
}

func (r *fakeTariffsRepo) ListTariffs(ctx context.Context) ([]Tariff, error) {
	items := make([]Tariff, 0, len(r.tariffs))
	for _, tariff := range r.tariffs {
		items = append(items, *tariff)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *fakeTariffsRepo) GetTariffByID(ctx context.Context, tariffID string) (*Tariff, error) {
	tariff, ok := r.tariffs[tariffID]
	if !ok {
		return nil, ErrTariffNotFound
	}
	return tariff, nil
}

func (r *fakeTariffsRepo) GetTariffsByIDs(ctx context.Context, tariffIDs []string) ([]Tariff, error) {
	items := make([]Tariff, 0, len(tariffIDs))
	for _, id := range tariffIDs {
		if tariff, ok := r.tariffs[id]; ok {
			items = append(items, *tariff)
		}
	}
	return items, nil
}

func (r *fakeTariffsRepo) CountTariffsByName(ctx context.Context, name string, kind Kind, excludeID string) (int64, error) {
	var count int64
	for _, tariff := range r.tariffs {
		if excludeID != "" && tariff.ID == excludeID {
			continue
		}
		if tariff.Kind == kind && strings.EqualFold(tariff.Name, name) {
			count++
		}
	}
	return count, nil
}

func (r *fakeTariffsRepo) CreateTariff(ctx context.Context, tariff *Tariff) error {
	r.tariffs[tariff.ID] = tariff
	return nil
}

func (r *fakeTariffsRepo) UpdateTariff(ctx context.Context, tariff *Tariff) error {
	if _, ok := r.tariffs[tariff.ID]; !ok {
		return ErrTariffNotFound
	}
	r.tariffs[tariff.ID] = tariff
	return nil
}

func (r *fakeTariffsRepo) SetTariffEnabled(ctx context.Context, tariffID string, enabled bool) (bool, error) {
	tariff, ok := r.tariffs[tariffID]
	if !ok {
		return false, nil
	}
	tariff.Enabled = enabled
	return true, nil
}

func (r *fakeTariffsRepo) DeleteTariff(ctx context.Context, tariffID string) (bool, error) {
	if _, ok := r.tariffs[tariffID]; !ok {
		return false, nil
	}
	delete(r.tariffs, tariffID)
	return true, nil
}

func (r *fakeTariffsRepo) UpsertPrice(ctx context.Context, entry *PriceEntry) error {
	key := priceKey(entry.TariffID, entry.ExamID)
	if existing, ok := r.prices[key]; ok {
		existing.Price = entry.Price
		return nil
	}
	stored := *entry
	r.prices[key] = &stored
	return nil
}

func (r *fakeTariffsRepo) DeletePrice(ctx context.Context, tariffID, examID string) (bool, error) {
	key := priceKey(tariffID, examID)
	if _, ok := r.prices[key]; !ok {
		return false, nil
	}
	delete(r.prices, key)
	return true, nil
}

func (r *fakeTariffsRepo) GetPrice(ctx context.Context, tariffID, examID string) (*PriceEntry, error) {
	entry, ok := r.prices[priceKey(tariffID, examID)]
	if !ok {
		return nil, ErrPriceNotFound
	}
	return entry, nil
}

func (r *fakeTariffsRepo) GetPricesByExamIDs(ctx context.Context, tariffID string, examIDs []string) ([]PriceEntry, error) {
	items := make([]PriceEntry, 0, len(examIDs))
	for _, examID := range examIDs {
		if entry, ok := r.prices[priceKey(tariffID, examID)]; ok {
			items = append(items, *entry)
		}
	}
	return items, nil
}

func (r *fakeTariffsRepo) ListPrices(ctx context.Context, tariffID string) ([]PriceEntry, error) {
	items := make([]PriceEntry, 0)
	for _, entry := range r.prices {
		if entry.TariffID == tariffID {
			items = append(items, *entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ExamID < items[j].ExamID })
	return items, nil
}

func (r *fakeTariffsRepo) ListAllPrices(ctx context.Context) ([]PriceEntry, error) {
	items := make([]PriceEntry, 0, len(r.prices))
	for _, entry := range r.prices {
		items = append(items, *entry)
	}
	return items, nil
}

func (r *fakeTariffsRepo) ListPricedExamIDs(ctx context.Context, tariffIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, tariffID := range tariffIDs {
		for _, entry := range r.prices {
			if entry.TariffID != tariffID {
				continue
			}
			if _, ok := seen[entry.ExamID]; ok {
				continue
			}
			seen[entry.ExamID] = struct{}{}
			ids = append(ids, entry.ExamID)
		}
	}
	return ids, nil
}

func (r *fakeTariffsRepo) CountPricesByTariff(ctx context.Context, tariffID string) (int64, error) {
	var count int64
	for _, entry := range r.prices {
		if entry.TariffID == tariffID {
			count++
		}
	}
	return count, nil
}

type fakeReferenceChecker struct {
	byTariff map[string][]TariffReference
}

func (f fakeReferenceChecker) ListByDefaultTariff(ctx context.Context, tariffID string) ([]TariffReference, error) {
	return f.byTariff[tariffID], nil
}

type fakeExamSource struct {
	exams  map[string]struct{}
	legacy []LegacyExamPrice
}

func (f fakeExamSource) ExamExists(ctx context.Context, examID string) (bool, error) {
	_, ok := f.exams[examID]
	return ok, nil
}

func (f fakeExamSource) ListLegacyPrices(ctx context.Context) ([]LegacyExamPrice, error) {
	return f.legacy, nil
}

func newTariffService(repo *fakeTariffsRepo, refs fakeReferenceChecker, exams fakeExamSource) *Service {
	if refs.byTariff == nil {
		refs.byTariff = map[string][]TariffReference{}
	}
	if exams.exams == nil {
		exams.exams = map[string]struct{}{}
	}
	return NewService(repo, refs, exams)
}

func seedTariff(repo *fakeTariffsRepo, name string, kind Kind) *Tariff {
	tariff := &Tariff{ID: uuid.NewString(), Name: name, Kind: kind, Enabled: true}
	repo.tariffs[tariff.ID] = tariff
	return tariff
}

func decimalPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func TestCreateTariffSuccess(t *testing.T) {
	repo := newFakeTariffsRepo()
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	tariff, err := svc.CreateTariff(context.Background(), CreateTariffInput{
		Name:    "  Clinic A  ",
		Kind:    KindSale,
		Taxable: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tariff.Name != "Clinic A" {
		t.Fatalf("expected trimmed name, got %q", tariff.Name)
	}
	if !tariff.Enabled {
		t.Fatalf("expected new tariff enabled")
	}
	if repo.tariffs[tariff.ID] == nil {
		t.Fatalf("tariff not stored")
	}
}

func TestCreateTariffNameTakenPerKind(t *testing.T) {
	repo := newFakeTariffsRepo()
	seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	_, err := svc.CreateTariff(context.Background(), CreateTariffInput{Name: "clinic a", Kind: KindSale})
	if !errors.Is(err, ErrTariffNameTaken) {
		t.Fatalf("expected ErrTariffNameTaken, got %v", err)
	}

	// Same name under the other kind is a separate namespace.
	if _, err := svc.CreateTariff(context.Background(), CreateTariffInput{Name: "Clinic A", Kind: KindCost}); err != nil {
		t.Fatalf("expected no error for other kind, got %v", err)
	}
}

func TestCreateTariffInvalidKind(t *testing.T) {
	repo := newFakeTariffsRepo()
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	_, err := svc.CreateTariff(context.Background(), CreateTariffInput{Name: "Clinic A", Kind: "wholesale"})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestUpdateTariffNameTaken(t *testing.T) {
	repo := newFakeTariffsRepo()
	seedTariff(repo, "Clinic A", KindSale)
	target := seedTariff(repo, "Clinic B", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	_, err := svc.UpdateTariff(context.Background(), UpdateTariffInput{ID: target.ID, Name: "Clinic A", Kind: KindSale})
	if !errors.Is(err, ErrTariffNameTaken) {
		t.Fatalf("expected ErrTariffNameTaken, got %v", err)
	}

	// Keeping its own name is not a collision.
	if _, err := svc.UpdateTariff(context.Background(), UpdateTariffInput{ID: target.ID, Name: "Clinic B", Kind: KindSale}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSetPriceUpsertKeepsRow(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{exams: map[string]struct{}{examID1: {}}})

	first, err := svc.SetPrice(context.Background(), tariff.ID, examID1, decimal.RequireFromString("45.50"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second, err := svc.SetPrice(context.Background(), tariff.ID, examID1, decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the original row to survive, got %s then %s", first.ID, second.ID)
	}
	if !second.Price.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected price overwritten, got %s", second.Price)
	}
	if len(repo.prices) != 1 {
		t.Fatalf("expected a single ledger row, got %d", len(repo.prices))
	}
}

func TestSetPriceNegative(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{exams: map[string]struct{}{examID1: {}}})

	_, err := svc.SetPrice(context.Background(), tariff.ID, examID1, decimal.RequireFromString("-1"))
	if !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
}

func TestSetPriceExamNotFound(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	_, err := svc.SetPrice(context.Background(), tariff.ID, examID1, decimal.RequireFromString("10"))
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestDeletePriceIdempotent(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{exams: map[string]struct{}{examID1: {}}})

	if _, err := svc.SetPrice(context.Background(), tariff.ID, examID1, decimal.RequireFromString("10")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.DeletePrice(context.Background(), tariff.ID, examID1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.DeletePrice(context.Background(), tariff.ID, examID1); err != nil {
		t.Fatalf("expected repeat delete to be a no-op, got %v", err)
	}
}

func TestDeleteTariffBlockedAndReported(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	repo.prices[priceKey(tariff.ID, examID1)] = &PriceEntry{
		ID: uuid.NewString(), TariffID: tariff.ID, ExamID: examID1, Price: decimal.RequireFromString("10"),
	}
	refs := fakeReferenceChecker{byTariff: map[string][]TariffReference{
		tariff.ID: {{ID: "ref-1", Name: "Clinic A Group"}},
	}}
	svc := newTariffService(repo, refs, fakeExamSource{})

	err := svc.DeleteTariff(context.Background(), tariff.ID)

	var inUse *TariffInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected TariffInUseError, got %v", err)
	}
	if len(inUse.References) != 1 || inUse.References[0].Name != "Clinic A Group" {
		t.Fatalf("expected blocking reference reported, got %+v", inUse.References)
	}
	if inUse.PriceCount != 1 {
		t.Fatalf("expected price count 1, got %d", inUse.PriceCount)
	}
	if repo.tariffs[tariff.ID] == nil {
		t.Fatalf("blocked delete must not remove the tariff")
	}
}

func TestDeleteTariffSuccess(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	if err := svc.DeleteTariff(context.Background(), tariff.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := repo.tariffs[tariff.ID]; ok {
		t.Fatalf("tariff not deleted")
	}
}

func TestStatsAveragesLedgerPrices(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	repo.prices[priceKey(tariff.ID, examID1)] = &PriceEntry{
		ID: uuid.NewString(), TariffID: tariff.ID, ExamID: examID1, Price: decimal.RequireFromString("10.00"),
	}
	repo.prices[priceKey(tariff.ID, examID2)] = &PriceEntry{
		ID: uuid.NewString(), TariffID: tariff.ID, ExamID: examID2, Price: decimal.RequireFromString("15.01"),
	}
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	stats, err := svc.Stats(context.Background(), tariff.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.ExamCount != 2 {
		t.Fatalf("expected 2 priced exams, got %d", stats.ExamCount)
	}
	if !stats.AvgPrice.Equal(decimal.RequireFromString("12.51")) {
		t.Fatalf("expected avg 12.51, got %s", stats.AvgPrice)
	}
}

func TestStatsEmptyTariff(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	svc := newTariffService(repo, fakeReferenceChecker{}, fakeExamSource{})

	stats, err := svc.Stats(context.Background(), tariff.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.ExamCount != 0 || !stats.AvgPrice.IsZero() {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestImportLegacyPricesSkipsPricedAndMissing(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	repo.prices[priceKey(tariff.ID, examID1)] = &PriceEntry{
		ID: uuid.NewString(), TariffID: tariff.ID, ExamID: examID1, Price: decimal.RequireFromString("99.99"),
	}
	exams := fakeExamSource{legacy: []LegacyExamPrice{
		{ExamID: examID1, Price: decimalPtr("10.00")},
		{ExamID: examID2, Price: decimalPtr("20.00")},
		{ExamID: examID3, Price: nil},
	}}
	svc := newTariffService(repo, fakeReferenceChecker{}, exams)

	imported, err := svc.ImportLegacyPrices(context.Background(), tariff.ID, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if imported != 1 {
		t.Fatalf("expected 1 imported entry, got %d", imported)
	}
	// The already-priced exam keeps its ledger value.
	if !repo.prices[priceKey(tariff.ID, examID1)].Price.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("existing ledger row must not be overwritten")
	}
	if entry := repo.prices[priceKey(tariff.ID, examID2)]; entry == nil || !entry.Price.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected exam 2 imported at 20.00, got %+v", entry)
	}
	if _, ok := repo.prices[priceKey(tariff.ID, examID3)]; ok {
		t.Fatalf("exam without a legacy price must be skipped")
	}
}

func TestImportLegacyPricesUsesReferenceColumn(t *testing.T) {
	repo := newFakeTariffsRepo()
	tariff := seedTariff(repo, "Clinic A", KindSale)
	exams := fakeExamSource{legacy: []LegacyExamPrice{
		{ExamID: examID1, Price: decimalPtr("10.00"), ReferencePrice: decimalPtr("12.00")},
		{ExamID: examID2, Price: decimalPtr("20.00"), ReferencePrice: nil},
	}}
	svc := newTariffService(repo, fakeReferenceChecker{}, exams)

	imported, err := svc.ImportLegacyPrices(context.Background(), tariff.ID, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if imported != 1 {
		t.Fatalf("expected 1 imported entry, got %d", imported)
	}
	if entry := repo.prices[priceKey(tariff.ID, examID1)]; entry == nil || !entry.Price.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("expected reference price 12.00, got %+v", entry)
	}
}
