// Package orders is the order lifecycle manager: it creates orders, runs the
// single execution attempt at creation time and handles cancellation.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradesim/orderexec/internal/engine"
	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/store"
)

const maxQuantity = 1_000_000

var (
	// ErrValidation marks a malformed creation request, rejected before any
	// persistence happens.
	ErrValidation = errors.New("invalid order request")

	ErrAlreadyExecuted  = errors.New("cannot cancel an executed order")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// CreateOrderRequest carries the fields needed to create an order
type CreateOrderRequest struct {
	AccountID  int64
	Symbol     string
	Type       models.OrderType
	Side       models.OrderSide
	Quantity   int
	LimitPrice *decimal.Decimal
}

// Validate checks the request shape. Business rules against the account are
// checked later, under the account's lock.
func (r *CreateOrderRequest) Validate() error {
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: account_id is required", ErrValidation)
	}
	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if len(r.Symbol) > 10 {
		return fmt.Errorf("%w: symbol must not exceed 10 characters", ErrValidation)
	}
	if r.Type != models.OrderTypeMarket && r.Type != models.OrderTypeLimit {
		return fmt.Errorf("%w: invalid order type %q", ErrValidation, r.Type)
	}
	if r.Side != models.SideBuy && r.Side != models.SideSell {
		return fmt.Errorf("%w: invalid order side %q", ErrValidation, r.Side)
	}
	if r.Quantity < 1 || r.Quantity > maxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, maxQuantity)
	}
	if r.LimitPrice != nil && r.LimitPrice.LessThan(decimal.RequireFromString("0.01")) {
		return fmt.Errorf("%w: limit price must be at least 0.01", ErrValidation)
	}
	return nil
}

// Service orchestrates order creation, execution and cancellation
type Service struct {
	store  store.Store
	engine *engine.Engine
	log    *zap.Logger

	// Per-account locks serialize execution attempts so concurrent buys
	// cannot race the available balance negative.
	accountLocks sync.Map // int64 -> *sync.Mutex
}

// NewService creates an order lifecycle service
func NewService(st store.Store, eng *engine.Engine, log *zap.Logger) *Service {
	return &Service{store: st, engine: eng, log: log}
}

func (s *Service) lockAccount(accountID int64) *sync.Mutex {
	mu, _ := s.accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CreateOrder creates an order as PENDING and immediately runs one execution
// attempt against it. The final order is persisted and returned whether the
// attempt succeeded or was rejected; a rejection shows up as status REJECTED
// with a FAILED log entry, not as an error from this call.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mu := s.lockAccount(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	// Pre-checks that abort before any order row exists.
	if account.Status != models.AccountActive {
		return nil, engine.ErrAccountNotActive
	}
	if req.Type == models.OrderTypeLimit && req.LimitPrice == nil {
		return nil, engine.ErrMissingLimitPrice
	}

	order := &models.Order{
		OrderNumber: newOrderNumber(),
		AccountID:   account.ID,
		Symbol:      strings.ToUpper(req.Symbol),
		Type:        req.Type,
		Side:        req.Side,
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
		Status:      models.OrderPending,
	}

	order, err = s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.log.Info("order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("account_id", account.ID))

	entry, execErr := s.engine.Execute(order, account)
	if _, err := s.store.SaveExecution(ctx, order, account, entry); err != nil {
		return nil, err
	}
	if execErr != nil {
		s.log.Warn("order rejected",
			zap.String("order_number", order.OrderNumber),
			zap.Error(execErr))
	}

	return order, nil
}

// CancelOrder cancels an order that has not been executed. Cancellation is a
// pure status flip: no ledger movement and no log entry.
func (s *Service) CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	mu := s.lockAccount(order.AccountID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock in case the order settled in between.
	order, err = s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderExecuted:
		return nil, ErrAlreadyExecuted
	case models.OrderCancelled:
		return nil, ErrAlreadyCancelled
	}

	order, err = s.store.UpdateOrderStatus(ctx, id, models.OrderCancelled)
	if err != nil {
		return nil, err
	}
	s.log.Info("order cancelled", zap.String("order_number", order.OrderNumber))
	return order, nil
}

// GetOrder retrieves an order by ID
func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// GetOrderByNumber retrieves an order by its order number
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.store.GetOrderByNumber(ctx, orderNumber)
}

// ListOrdersByAccount retrieves all orders for an account
func (s *Service) ListOrdersByAccount(ctx context.Context, accountID int64) ([]models.Order, error) {
	return s.store.ListOrdersByAccount(ctx, accountID)
}

// ListOrders retrieves all orders
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

// ListExecutionLogsByOrder retrieves an order's audit trail, most recent first
func (s *Service) ListExecutionLogsByOrder(ctx context.Context, orderID int64) ([]models.ExecutionLog, error) {
	return s.store.ListExecutionLogsByOrder(ctx, orderID)
}

// ListExecutionLogs retrieves all execution logs, most recent first
func (s *Service) ListExecutionLogs(ctx context.Context) ([]models.ExecutionLog, error) {
	return s.store.ListExecutionLogs(ctx)
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
