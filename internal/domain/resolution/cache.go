package resolution

import (
	"time"

	"lab-catalog-go/internal/domain/tariffs"
)

// TariffCache shortcuts the tariff lookups both resolvers share. The
// default is a no-op; a TTL-bounded implementation can be plugged in at
// composition time.
type TariffCache interface {
	Get(tariffID string) (tariffs.Tariff, bool)
	Set(tariffID string, tariff tariffs.Tariff, ttl time.Duration)
}

type noopTariffCache struct{}

func (noopTariffCache) Get(string) (tariffs.Tariff, bool) {
	return tariffs.Tariff{}, false
}

func (noopTariffCache) Set(string, tariffs.Tariff, time.Duration) {}
