package store

import (
	"context"
	"errors"

	"github.com/tradesim/orderexec/internal/models"
)

// Lookup misses. Surfaced to API clients as 404s.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AccountStore persists accounts. Deleting an account removes its orders and
// their execution logs with it.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// OrderStore persists orders
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrdersByAccount(ctx context.Context, accountID int64) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
}

// ExecutionLogStore reads the audit trail. Logs are only ever written through
// SaveExecution.
type ExecutionLogStore interface {
	ListExecutionLogsByOrder(ctx context.Context, orderID int64) ([]models.ExecutionLog, error)
	ListExecutionLogs(ctx context.Context) ([]models.ExecutionLog, error)
}

// Store is everything the order lifecycle needs from persistence.
//
// SaveExecution commits the outcome of one execution attempt as a single unit
// of work: the order's new status, the account's new available balance and
// exactly one execution log entry all land together or not at all.
type Store interface {
	UserStore
	AccountStore
	OrderStore
	ExecutionLogStore

	SaveExecution(ctx context.Context, order *models.Order, account *models.Account, entry *models.ExecutionLog) (*models.ExecutionLog, error)
}
