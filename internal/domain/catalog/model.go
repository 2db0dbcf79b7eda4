package catalog

import "github.com/shopspring/decimal"

// Exam is the externally-owned catalog row. This service only reads it;
// the legacy price columns survive from the pre-ledger era and are
// consulted solely by the one-time import, never by live resolution.
type Exam struct {
	ID                   string           `gorm:"type:uuid;primaryKey"`
	Name                 string           `gorm:"not null"`
	Category             string           `gorm:"not null"`
	PublicVisible        bool             `gorm:"column:is_public_visible;not null;default:false"`
	LegacyPrice          *decimal.Decimal `gorm:"type:numeric(12,2)"`
	LegacyReferencePrice *decimal.Decimal `gorm:"type:numeric(12,2)"`
}

func (Exam) TableName() string {
	return "exams"
}
