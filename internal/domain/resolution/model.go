package resolution

import (
	"sort"

	"github.com/shopspring/decimal"

	"lab-catalog-go/internal/domain/references"
)

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
)

// Caller is the externally-derived identity bundle a request carries into
// the resolvers. It is never mutated here. CanViewPrices is a surface
// capability, deliberately orthogonal to Role: some surfaces never show
// prices to anonymous visitors even though those visitors see the public
// catalog.
type Caller struct {
	Role          Role
	UserID        string
	Memberships   []references.Reference
	CanViewPrices bool
}

// PriceResult is either a resolved price with the tariff it came from, or
// unavailable (the zero value). Unavailable is an expected outcome, not an
// error: it means no price is configured for this caller.
type PriceResult struct {
	Available  bool
	Price      decimal.Decimal
	TariffName string
}

// ExamIDSet is the visibility outcome: the set of exam ids a caller may see.
type ExamIDSet map[string]struct{}

func (s ExamIDSet) Contains(examID string) bool {
	_, ok := s[examID]
	return ok
}

func (s ExamIDSet) Add(examID string) {
	s[examID] = struct{}{}
}

// Sorted returns the ids in lexical order for stable responses.
func (s ExamIDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
