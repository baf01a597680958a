// Package engine runs a single synchronous execution attempt for an order:
// validate, price, settle. Every attempt produces exactly one execution log
// entry, success or failure.
package engine

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradesim/orderexec/internal/ledger"
	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/pricing"
)

// Validation failures. Each rejects the order and is surfaced to the caller
// after the rejection and failure log are recorded.
var (
	ErrAccountNotActive  = errors.New("account is not active")
	ErrMissingLimitPrice = errors.New("limit price is required for LIMIT orders")
	ErrInvalidQuantity   = errors.New("order quantity must be positive")
)

// Engine executes orders against the simulated market
type Engine struct {
	pricer *pricing.Pricer
	log    *zap.Logger
}

// New creates an execution engine
func New(pricer *pricing.Pricer, log *zap.Logger) *Engine {
	return &Engine{pricer: pricer, log: log}
}

// Execute runs one execution attempt, mutating order and account in place.
// On success the order is EXECUTED and the account's available balance has
// moved by the fill's total cost. On any failure the order is REJECTED, the
// account is untouched and the error is returned alongside the failure log.
// The caller owns the account's lock and commits all mutations together.
func (e *Engine) Execute(order *models.Order, account *models.Account) (*models.ExecutionLog, error) {
	e.log.Info("starting execution",
		zap.String("order_number", order.OrderNumber),
		zap.String("symbol", order.Symbol))

	if err := validate(order, account); err != nil {
		return e.reject(order, err), err
	}

	price := e.pricer.Price(order)
	totalCost := price.Mul(decimal.NewFromInt(int64(order.Quantity))).Round(2)

	if order.Side == models.SideBuy {
		if err := ledger.Reserve(account, totalCost); err != nil {
			return e.reject(order, err), err
		}
	} else {
		ledger.Release(account, totalCost)
	}

	order.Status = models.OrderExecuted
	order.ExecutedPrice = &price
	order.ExecutedQuantity = order.Quantity

	e.log.Info("order executed",
		zap.String("order_number", order.OrderNumber),
		zap.String("price", price.StringFixed(2)),
		zap.String("total_cost", totalCost.StringFixed(2)))

	return &models.ExecutionLog{
		OrderID:     order.ID,
		Quantity:    order.Quantity,
		Price:       price,
		TotalAmount: totalCost,
		Status:      models.ExecutionSuccess,
		Message:     "Order executed successfully",
	}, nil
}

func validate(order *models.Order, account *models.Account) error {
	if account.Status != models.AccountActive {
		return ErrAccountNotActive
	}
	if order.Type == models.OrderTypeLimit && order.LimitPrice == nil {
		return ErrMissingLimitPrice
	}
	if order.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (e *Engine) reject(order *models.Order, cause error) *models.ExecutionLog {
	order.Status = models.OrderRejected

	e.log.Warn("order execution failed",
		zap.String("order_number", order.OrderNumber),
		zap.Error(cause))

	return &models.ExecutionLog{
		OrderID:     order.ID,
		Quantity:    0,
		Price:       decimal.Zero,
		TotalAmount: decimal.Zero,
		Status:      models.ExecutionFailed,
		Message:     cause.Error(),
	}
}
