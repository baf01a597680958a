// Package pricing computes fill prices for the simulated market.
package pricing

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
)

// Simulated market parameters: market orders fill at base ± maxVariation.
const (
	basePrice    = 100.0
	maxVariation = 10.0
)

// Pricer computes the fill price for an order. Limit orders fill at their
// limit price; market orders fill at a simulated price drawn from the
// injected random source, so tests can seed it for reproducible fills.
type Pricer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Pricer around rng. A nil rng gets a time-seeded source.
func New(rng *rand.Rand) *Pricer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pricer{rng: rng}
}

// Price returns the fill price for the order, rounded to 2 decimal places.
// The caller has already validated that limit orders carry a limit price.
func (p *Pricer) Price(order *models.Order) decimal.Decimal {
	if order.Type == models.OrderTypeLimit {
		return *order.LimitPrice
	}

	p.mu.Lock()
	variation := (p.rng.Float64() - 0.5) * 2 * maxVariation
	p.mu.Unlock()

	return decimal.NewFromFloat(basePrice + variation).Round(2)
}
