package tariffs

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindCost Kind = "cost"
	KindSale Kind = "sale"
)

// Tariff is a named price list. Disabling a tariff suspends it for
// resolution without touching its price entries.
type Tariff struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Kind      Kind      `gorm:"size:10;not null"`
	Taxable   bool      `gorm:"not null;default:false"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PriceEntry is one price for one (tariff, exam) pair. The ledger holds at
// most one row per pair; writes go through an atomic upsert.
type PriceEntry struct {
	ID        string          `gorm:"type:uuid;primaryKey"`
	TariffID  string          `gorm:"type:uuid;not null;uniqueIndex:idx_price_entries_tariff_exam,priority:1"`
	ExamID    string          `gorm:"type:uuid;not null;uniqueIndex:idx_price_entries_tariff_exam,priority:2"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

type CreateTariffInput struct {
	Name    string
	Kind    Kind
	Taxable bool
}

type UpdateTariffInput struct {
	ID      string
	Name    string
	Kind    Kind
	Taxable bool
}

// Stats is derived from the ledger on demand, never persisted.
type Stats struct {
	ExamCount int64
	AvgPrice  decimal.Decimal
}

// TariffReference identifies a client group that blocks a tariff deletion.
type TariffReference struct {
	ID   string
	Name string
}

// LegacyExamPrice carries the flat pre-ledger prices still stored on exam
// rows. They are only read by ImportLegacyPrices, never by resolution.
type LegacyExamPrice struct {
	ExamID         string
	Price          *decimal.Decimal
	ReferencePrice *decimal.Decimal
}
