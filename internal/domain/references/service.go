package references

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TariffChecker validates default-tariff assignments. Wired from the
// tariffs domain at composition time.
type TariffChecker interface {
	TariffExists(ctx context.Context, tariffID string) (bool, error)
}

type Service struct {
	repo    Repository
	tariffs TariffChecker
}

func NewService(repo Repository, tariffs TariffChecker) *Service {
	return &Service{repo: repo, tariffs: tariffs}
}

func (s *Service) ListReferences(ctx context.Context) ([]Reference, error) {
	return s.repo.ListReferences(ctx)
}

func (s *Service) GetReference(ctx context.Context, referenceID string) (*Reference, error) {
	return s.repo.GetReferenceByID(ctx, referenceID)
}

// PublicReference returns the reserved general-public reference.
func (s *Service) PublicReference(ctx context.Context) (*Reference, error) {
	return s.repo.GetReferenceByName(ctx, PublicReferenceName)
}

func (s *Service) CreateReference(ctx context.Context, input CreateReferenceInput) (*Reference, error) {
	name, err := validateReferenceName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkTariff(ctx, input.DefaultTariffID); err != nil {
		return nil, err
	}

	count, err := s.repo.CountReferencesByName(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrReferenceNameTaken
	}

	reference := Reference{
		ID:              uuid.NewString(),
		Name:            name,
		BusinessName:    normalizeOptional(input.BusinessName),
		DefaultTariffID: input.DefaultTariffID,
		Active:          true,
	}
	if err := s.repo.CreateReference(ctx, &reference); err != nil {
		return nil, err
	}
	return &reference, nil
}

func (s *Service) UpdateReference(ctx context.Context, input UpdateReferenceInput) (*Reference, error) {
	name, err := validateReferenceName(input.Name)
	if err != nil {
		return nil, err
	}

	reference, err := s.repo.GetReferenceByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if reference.Name == PublicReferenceName && name != PublicReferenceName {
		return nil, ErrPublicReference
	}

	count, err := s.repo.CountReferencesByName(ctx, name, reference.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrReferenceNameTaken
	}

	reference.Name = name
	if input.BusinessName.Set {
		reference.BusinessName = normalizeOptional(input.BusinessName.Value)
	}
	if input.DefaultTariffID.Set {
		if err := s.checkTariff(ctx, input.DefaultTariffID.Value); err != nil {
			return nil, err
		}
		reference.DefaultTariffID = input.DefaultTariffID.Value
	}
	reference.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateReference(ctx, reference); err != nil {
		return nil, err
	}
	return reference, nil
}

// DeleteReference removes the reference and its memberships in one
// transaction, so no orphaned membership rows survive.
func (s *Service) DeleteReference(ctx context.Context, referenceID string) error {
	reference, err := s.repo.GetReferenceByID(ctx, referenceID)
	if err != nil {
		return err
	}
	if reference.Name == PublicReferenceName {
		return ErrPublicReference
	}

	return s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.DeleteMembershipsByReference(ctx, referenceID); err != nil {
			return err
		}
		deleted, err := tx.DeleteReference(ctx, referenceID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrReferenceNotFound
		}
		return nil
	})
}

func (s *Service) SetActive(ctx context.Context, referenceID string, active bool) error {
	updated, err := s.repo.SetReferenceActive(ctx, referenceID, active)
	if err != nil {
		return err
	}
	if !updated {
		return ErrReferenceNotFound
	}
	return nil
}

// AssignMember is idempotent: assigning an already-assigned user is a no-op.
func (s *Service) AssignMember(ctx context.Context, userID, referenceID string) error {
	if _, err := s.repo.GetReferenceByID(ctx, referenceID); err != nil {
		return err
	}
	return s.repo.AddMembership(ctx, &Membership{UserID: userID, ReferenceID: referenceID})
}

// RemoveMember is idempotent: removing an absent assignment is a no-op.
func (s *Service) RemoveMember(ctx context.Context, userID, referenceID string) error {
	_, err := s.repo.DeleteMembership(ctx, userID, referenceID)
	return err
}

// ListByUser returns the user's references in membership order.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Reference, error) {
	return s.repo.ListReferencesByUser(ctx, userID)
}

func (s *Service) checkTariff(ctx context.Context, tariffID *string) error {
	if tariffID == nil {
		return nil
	}
	exists, err := s.tariffs.TariffExists(ctx, *tariffID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTariffNotFound
	}
	return nil
}

func validateReferenceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	return name, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
