package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus describes whether an account may trade
type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountFrozen AccountStatus = "FROZEN"
	AccountClosed AccountStatus = "CLOSED"
)

// OrderType distinguishes market orders from limit orders
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderSide is the direction of an order
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus is the lifecycle state of an order.
// PARTIALLY_FILLED is representable but no current code path produces it.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderExecuted        OrderStatus = "EXECUTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderCancelled       OrderStatus = "CANCELLED"
)

// ExecutionStatus is the outcome of a single execution attempt
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
	ExecutionPartial ExecutionStatus = "PARTIAL"
)

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account holds a user's funds. Balance is the opening total;
// AvailableBalance is the portion not committed to filled buys. Only
// AvailableBalance moves on fills.
type Account struct {
	ID               int64           `json:"id"`
	AccountNumber    string          `json:"account_number"`
	UserID           int64           `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Status           AccountStatus   `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Order represents a buy or sell order against an account.
// LimitPrice is nil for market orders; ExecutedPrice is set only once the
// order reaches EXECUTED.
type Order struct {
	ID               int64            `json:"id"`
	OrderNumber      string           `json:"order_number"`
	AccountID        int64            `json:"account_id"`
	Symbol           string           `json:"symbol"`
	Type             OrderType        `json:"type"`
	Side             OrderSide        `json:"side"`
	Quantity         int              `json:"quantity"`
	LimitPrice       *decimal.Decimal `json:"limit_price,omitempty"`
	Status           OrderStatus      `json:"status"`
	ExecutedPrice    *decimal.Decimal `json:"executed_price,omitempty"`
	ExecutedQuantity int              `json:"executed_quantity"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ExecutionLog is the append-only audit record of one execution attempt.
// Exactly one is written per attempt, success or failure, and it is never
// mutated afterwards.
type ExecutionLog struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      ExecutionStatus `json:"status"`
	Message     string          `json:"message"`
	ExecutedAt  time.Time       `json:"executed_at"`
}
