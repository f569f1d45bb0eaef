package rates

import (
	"context"
	"sync"

	"gradschool/internal/models"
)

type rateKey struct {
	level       models.ProgramLevel
	defenseType models.DefenseType
	role        models.CommitteeRole
}

// MemorySource is an in-memory RateSource, used for fixtures and dry runs
type MemorySource struct {
	mu    sync.RWMutex
	rates map[rateKey]models.PaymentRate
}

// NewMemorySource creates a source holding the given rates
func NewMemorySource(rates ...models.PaymentRate) *MemorySource {
	m := &MemorySource{rates: make(map[rateKey]models.PaymentRate)}
	for _, rate := range rates {
		m.Put(rate)
	}
	return m
}

// Put adds or replaces a rate
func (m *MemorySource) Put(rate models.PaymentRate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[rateKey{rate.ProgramLevel, rate.DefenseType, rate.Role}] = rate
}

// RatesFor implements RateSource
func (m *MemorySource) RatesFor(_ context.Context, level models.ProgramLevel, defenseType models.DefenseType) ([]models.PaymentRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.PaymentRate
	for _, role := range models.CommitteeRoles {
		if rate, ok := m.rates[rateKey{level, defenseType, role}]; ok {
			out = append(out, rate)
		}
	}
	return out, nil
}
