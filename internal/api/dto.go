package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
)

// CreateOrderRequest is the request body for placing an order
type CreateOrderRequest struct {
	AccountID  int64            `json:"account_id"`
	Symbol     string           `json:"symbol"`
	Type       string           `json:"type"`
	Side       string           `json:"side"`
	Quantity   int              `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

// OrderResponse is the API shape of an order
type OrderResponse struct {
	ID               int64            `json:"id"`
	OrderNumber      string           `json:"order_number"`
	AccountID        int64            `json:"account_id"`
	Symbol           string           `json:"symbol"`
	Type             string           `json:"type"`
	Side             string           `json:"side"`
	Quantity         int              `json:"quantity"`
	LimitPrice       *decimal.Decimal `json:"limit_price,omitempty"`
	Status           string           `json:"status"`
	ExecutedPrice    *decimal.Decimal `json:"executed_price,omitempty"`
	ExecutedQuantity int              `json:"executed_quantity"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AccountResponse is the API shape of an account
type AccountResponse struct {
	ID               int64           `json:"id"`
	AccountNumber    string          `json:"account_number"`
	UserID           int64           `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ExecutionLogResponse is the API shape of an execution log entry
type ExecutionLogResponse struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		AccountID:        o.AccountID,
		Symbol:           o.Symbol,
		Type:             string(o.Type),
		Side:             string(o.Side),
		Quantity:         o.Quantity,
		LimitPrice:       o.LimitPrice,
		Status:           string(o.Status),
		ExecutedPrice:    o.ExecutedPrice,
		ExecutedQuantity: o.ExecutedQuantity,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

func toAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID,
		AccountNumber:    a.AccountNumber,
		UserID:           a.UserID,
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance,
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt,
	}
}

func toAccountResponses(accounts []models.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	return out
}

func toExecutionLogResponse(e *models.ExecutionLog) ExecutionLogResponse {
	return ExecutionLogResponse{
		ID:          e.ID,
		OrderID:     e.OrderID,
		Quantity:    e.Quantity,
		Price:       e.Price,
		TotalAmount: e.TotalAmount,
		Status:      string(e.Status),
		Message:     e.Message,
		ExecutedAt:  e.ExecutedAt,
	}
}

func toExecutionLogResponses(logs []models.ExecutionLog) []ExecutionLogResponse {
	out := make([]ExecutionLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, toExecutionLogResponse(&logs[i]))
	}
	return out
}
