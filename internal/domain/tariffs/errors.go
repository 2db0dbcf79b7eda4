package tariffs

import (
	"errors"
	"fmt"
)

var (
	ErrTariffNotFound  = errors.New("tariff not found")
	ErrExamNotFound    = errors.New("exam not found")
	ErrPriceNotFound   = errors.New("price not found")
	ErrTariffNameTaken = errors.New("tariff name already exists")
	ErrInvalidKind     = errors.New("invalid tariff kind")
	ErrNegativePrice   = errors.New("price must not be negative")
)

// TariffInUseError blocks a tariff deletion and reports what still points at
// the tariff. The delete performs no partial mutation.
type TariffInUseError struct {
	TariffID   string
	References []TariffReference
	PriceCount int64
}

func (e *TariffInUseError) Error() string {
	return fmt.Sprintf("tariff %s is in use by %d reference(s) and %d price entrie(s)",
		e.TariffID, len(e.References), e.PriceCount)
}
