package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
)

func TestPrice_LimitOrder(t *testing.T) {
	limit := decimal.RequireFromString("150.00")
	order := &models.Order{Type: models.OrderTypeLimit, LimitPrice: &limit}

	p := New(rand.New(rand.NewSource(1)))
	got := p.Price(order)
	if !got.Equal(limit) {
		t.Errorf("price = %s, want %s", got, limit)
	}
}

func TestPrice_MarketOrderBounds(t *testing.T) {
	p := New(rand.New(rand.NewSource(42)))
	order := &models.Order{Type: models.OrderTypeMarket}

	lower := decimal.RequireFromString("90.00")
	upper := decimal.RequireFromString("110.00")

	for i := 0; i < 1000; i++ {
		got := p.Price(order)
		if got.LessThan(lower) || got.GreaterThan(upper) {
			t.Fatalf("price %s out of [90.00, 110.00]", got)
		}
		if got.Exponent() < -2 {
			t.Fatalf("price %s has more than 2 decimal places", got)
		}
	}
}

func TestPrice_MarketOrderDeterministicWithSeed(t *testing.T) {
	order := &models.Order{Type: models.OrderTypeMarket}

	a := New(rand.New(rand.NewSource(7)))
	b := New(rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		pa, pb := a.Price(order), b.Price(order)
		if !pa.Equal(pb) {
			t.Fatalf("same seed diverged at draw %d: %s vs %s", i, pa, pb)
		}
	}
}
