package references

import "time"

// PublicReferenceName is the reserved client group that carries the
// general-public price list. It is seeded by migration and cannot be
// renamed or deleted.
const PublicReferenceName = "Público"

// Reference is a named client group, optionally pointing at a default
// tariff. A nil DefaultTariffID means "no special pricing yet".
type Reference struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null;uniqueIndex"`
	BusinessName    *string   `gorm:"type:text"`
	DefaultTariffID *string   `gorm:"type:uuid;index"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// Membership assigns a user to a reference. The composite key makes the
// assignment naturally idempotent.
type Membership struct {
	UserID      string    `gorm:"type:uuid;primaryKey"`
	ReferenceID string    `gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

type CreateReferenceInput struct {
	Name            string
	BusinessName    *string
	DefaultTariffID *string
}

// OptionalNullableString distinguishes "leave unchanged" from "set to null"
// on partial updates.
type OptionalNullableString struct {
	Set   bool
	Value *string
}

type UpdateReferenceInput struct {
	ID              string
	Name            string
	BusinessName    OptionalNullableString
	DefaultTariffID OptionalNullableString
}
