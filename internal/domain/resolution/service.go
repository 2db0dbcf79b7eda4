package resolution

import (
	"context"
	"errors"
	"time"

	"lab-catalog-go/internal/domain/references"
	"lab-catalog-go/internal/domain/tariffs"
)

// TariffSource is the slice of the tariff domain both resolvers read.
type TariffSource interface {
	GetTariffsByIDs(ctx context.Context, tariffIDs []string) ([]tariffs.Tariff, error)
	GetPrice(ctx context.Context, tariffID, examID string) (*tariffs.PriceEntry, error)
	GetPricesByExamIDs(ctx context.Context, tariffID string, examIDs []string) ([]tariffs.PriceEntry, error)
	ListPricedExamIDs(ctx context.Context, tariffIDs []string) ([]string, error)
}

// ReferenceSource supplies the reserved public reference used as the
// pricing fallback for callers without a qualifying membership.
type ReferenceSource interface {
	PublicReference(ctx context.Context) (*references.Reference, error)
}

// ExamSource is the read-only view of the externally-owned catalog.
type ExamSource interface {
	ExamExists(ctx context.Context, examID string) (bool, error)
	ListExamIDs(ctx context.Context) ([]string, error)
	ListPublicExamIDs(ctx context.Context) ([]string, error)
}

// Service answers the two read questions of the catalog: what may this
// caller see, and at what price. It never mutates state and fails closed:
// on any internal error the caller gets an error, never a default price or
// a widened exam set.
type Service struct {
	tariffs  TariffSource
	refs     ReferenceSource
	exams    ExamSource
	cache    TariffCache
	cacheTTL time.Duration
}

func NewService(tariffSource TariffSource, referenceSource ReferenceSource, examSource ExamSource) *Service {
	return &Service{
		tariffs: tariffSource,
		refs:    referenceSource,
		exams:   examSource,
		cache:   noopTariffCache{},
	}
}

// SetTariffCache plugs in a TTL-bounded cache for tariff lookups.
func (s *Service) SetTariffCache(cache TariffCache, ttl time.Duration) {
	if cache == nil {
		s.cache = noopTariffCache{}
		return
	}
	s.cache = cache
	s.cacheTTL = ttl
}

// ResolvePrice returns the price of one exam for the caller, or the
// unavailable result when no configuration applies.
func (s *Service) ResolvePrice(ctx context.Context, examID string, caller Caller) (PriceResult, error) {
	if !caller.CanViewPrices {
		return PriceResult{}, nil
	}

	exists, err := s.exams.ExamExists(ctx, examID)
	if err != nil {
		return PriceResult{}, err
	}
	if !exists {
		return PriceResult{}, ErrExamNotFound
	}

	tariff, err := s.applicableTariff(ctx, caller)
	if err != nil {
		return PriceResult{}, err
	}
	if tariff == nil {
		return PriceResult{}, nil
	}

	entry, err := s.tariffs.GetPrice(ctx, tariff.ID, examID)
	if err != nil {
		if errors.Is(err, tariffs.ErrPriceNotFound) {
			// No ledger entry means no price. The legacy flat fields on the
			// exam row are never consulted here.
			return PriceResult{}, nil
		}
		return PriceResult{}, err
	}

	return PriceResult{Available: true, Price: entry.Price, TariffName: tariff.Name}, nil
}

// ResolvePrices is the batched form: one applicable-tariff computation and
// one ledger query for the whole id list. Ids without a configured price
// map to the unavailable result.
func (s *Service) ResolvePrices(ctx context.Context, examIDs []string, caller Caller) (map[string]PriceResult, error) {
	results := make(map[string]PriceResult, len(examIDs))
	for _, examID := range examIDs {
		results[examID] = PriceResult{}
	}
	if len(examIDs) == 0 || !caller.CanViewPrices {
		return results, nil
	}

	tariff, err := s.applicableTariff(ctx, caller)
	if err != nil {
		return nil, err
	}
	if tariff == nil {
		return results, nil
	}

	entries, err := s.tariffs.GetPricesByExamIDs(ctx, tariff.ID, examIDs)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		results[entry.ExamID] = PriceResult{Available: true, Price: entry.Price, TariffName: tariff.Name}
	}
	return results, nil
}

// ListVisibleExamIDs computes the caller's catalog view. Admins see every
// exam. Everyone sees the public exams. Members additionally see every exam
// priced under an enabled default tariff of one of their active references:
// visibility for a client group is exactly "priced for that group".
func (s *Service) ListVisibleExamIDs(ctx context.Context, caller Caller) (ExamIDSet, error) {
	if caller.Role == RoleAdmin {
		ids, err := s.exams.ListExamIDs(ctx)
		if err != nil {
			return nil, err
		}
		return toSet(ids), nil
	}

	ids, err := s.exams.ListPublicExamIDs(ctx)
	if err != nil {
		return nil, err
	}
	visible := toSet(ids)

	if caller.Role != RoleMember {
		return visible, nil
	}

	tariffIDs, err := s.membershipTariffIDs(ctx, caller)
	if err != nil {
		return nil, err
	}
	if len(tariffIDs) == 0 {
		return visible, nil
	}

	priced, err := s.tariffs.ListPricedExamIDs(ctx, tariffIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range priced {
		visible.Add(id)
	}
	return visible, nil
}

// applicableTariff picks the tariff that prices this caller's catalog:
// the first active membership (in membership order) whose default tariff is
// enabled wins; otherwise the public reference's tariff under the same
// gating; otherwise nil. First-match is deliberate, not "cheapest" or
// "most specific".
func (s *Service) applicableTariff(ctx context.Context, caller Caller) (*tariffs.Tariff, error) {
	candidates := make([]string, 0, len(caller.Memberships)+1)
	for _, reference := range caller.Memberships {
		if reference.Active && reference.DefaultTariffID != nil {
			candidates = append(candidates, *reference.DefaultTariffID)
		}
	}

	public, err := s.refs.PublicReference(ctx)
	if err != nil {
		if !errors.Is(err, references.ErrReferenceNotFound) {
			return nil, err
		}
	} else if public.Active && public.DefaultTariffID != nil {
		candidates = append(candidates, *public.DefaultTariffID)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	byID, err := s.fetchTariffs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for _, tariffID := range candidates {
		tariff, ok := byID[tariffID]
		if ok && tariff.Enabled {
			return &tariff, nil
		}
	}
	return nil, nil
}

// membershipTariffIDs collects every enabled default tariff of the caller's
// active references. Unlike price resolution, visibility unions them all.
func (s *Service) membershipTariffIDs(ctx context.Context, caller Caller) ([]string, error) {
	candidates := make([]string, 0, len(caller.Memberships))
	for _, reference := range caller.Memberships {
		if reference.Active && reference.DefaultTariffID != nil {
			candidates = append(candidates, *reference.DefaultTariffID)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	byID, err := s.fetchTariffs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	enabled := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, tariffID := range candidates {
		if _, ok := seen[tariffID]; ok {
			continue
		}
		seen[tariffID] = struct{}{}
		if tariff, ok := byID[tariffID]; ok && tariff.Enabled {
			enabled = append(enabled, tariffID)
		}
	}
	return enabled, nil
}

func (s *Service) fetchTariffs(ctx context.Context, tariffIDs []string) (map[string]tariffs.Tariff, error) {
	byID := make(map[string]tariffs.Tariff, len(tariffIDs))
	missing := make([]string, 0, len(tariffIDs))
	seen := make(map[string]struct{}, len(tariffIDs))
	for _, tariffID := range tariffIDs {
		if _, ok := seen[tariffID]; ok {
			continue
		}
		seen[tariffID] = struct{}{}
		if tariff, ok := s.cache.Get(tariffID); ok {
			byID[tariffID] = tariff
			continue
		}
		missing = append(missing, tariffID)
	}

	if len(missing) > 0 {
		fetched, err := s.tariffs.GetTariffsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, tariff := range fetched {
			byID[tariff.ID] = tariff
			s.cache.Set(tariff.ID, tariff, s.cacheTTL)
		}
	}
	return byID, nil
}

func toSet(ids []string) ExamIDSet {
	set := make(ExamIDSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}
