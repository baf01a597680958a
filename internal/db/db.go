// Package db is the PostgreSQL implementation of the stores, built on pgx.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/store"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, username, password_hash, created_at",
		username, passwordHash).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

const accountColumns = "id, account_number, user_id, balance::text, available_balance::text, status, created_at, updated_at"

// CreateAccount inserts a new account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	row := db.Pool.QueryRow(ctx,
		"INSERT INTO accounts (account_number, user_id, balance, available_balance, status) VALUES ($1, $2, $3, $4, $5) RETURNING "+accountColumns,
		account.AccountNumber, account.UserID, account.Balance.StringFixed(2), account.AvailableBalance.StringFixed(2), string(account.Status))
	created, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// GetAccount retrieves an account by ID
func (db *DB) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByNumber retrieves an account by its account number
func (db *DB) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE account_number = $1", accountNumber)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListAccountsByUser retrieves all accounts owned by a user
func (db *DB) ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+accountColumns+" FROM accounts WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListAccounts retrieves all accounts
func (db *DB) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// DeleteAccount removes an account; orders and execution logs cascade
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

const orderColumns = "id, order_number, account_id, symbol, type, side, quantity, limit_price::text, status, executed_price::text, executed_quantity, created_at, updated_at"

// CreateOrder inserts a new order
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	row := db.Pool.QueryRow(ctx,
		"INSERT INTO orders (order_number, account_id, symbol, type, side, quantity, limit_price, status, executed_quantity) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING "+orderColumns,
		order.OrderNumber, order.AccountID, order.Symbol, string(order.Type), string(order.Side),
		order.Quantity, decimalParam(order.LimitPrice), string(order.Status), order.ExecutedQuantity)
	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return created, nil
}

// GetOrder retrieves an order by ID
func (db *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetOrderByNumber retrieves an order by its order number
func (db *DB) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_number = $1", orderNumber)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListOrdersByAccount retrieves all orders for an account
func (db *DB) ListOrdersByAccount(ctx context.Context, accountID int64) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+orderColumns+" FROM orders WHERE account_id = $1 ORDER BY id", accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListOrders retrieves all orders
func (db *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// UpdateOrderStatus updates an order's status
func (db *DB) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	row := db.Pool.QueryRow(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 RETURNING "+orderColumns,
		string(status), id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}

// SaveExecution commits the outcome of one execution attempt in a single
// transaction: account balances, order state and the log entry. The account
// row is locked for the duration.
func (db *DB) SaveExecution(ctx context.Context, order *models.Order, account *models.Account, entry *models.ExecutionLog) (*models.ExecutionLog, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE", account.ID); err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = $1, available_balance = $2, updated_at = now() WHERE id = $3",
		account.Balance.StringFixed(2), account.AvailableBalance.StringFixed(2), account.ID); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE orders SET status = $1, executed_price = $2, executed_quantity = $3, updated_at = now() WHERE id = $4",
		string(order.Status), decimalParam(order.ExecutedPrice), order.ExecutedQuantity, order.ID); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	saved := *entry
	err = tx.QueryRow(ctx,
		"INSERT INTO execution_logs (order_id, quantity, price, total_amount, status, message) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, executed_at",
		order.ID, entry.Quantity, entry.Price.StringFixed(2), entry.TotalAmount.StringFixed(2),
		string(entry.Status), entry.Message).Scan(&saved.ID, &saved.ExecutedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert execution log: %w", err)
	}
	saved.OrderID = order.ID

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit execution: %w", err)
	}
	return &saved, nil
}

const logColumns = "id, order_id, quantity, price::text, total_amount::text, status, message, executed_at"

// ListExecutionLogsByOrder retrieves an order's logs, most recent first
func (db *DB) ListExecutionLogsByOrder(ctx context.Context, orderID int64) ([]models.ExecutionLog, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+logColumns+" FROM execution_logs WHERE order_id = $1 ORDER BY executed_at DESC, id DESC", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// ListExecutionLogs retrieves all execution logs, most recent first
func (db *DB) ListExecutionLogs(ctx context.Context) ([]models.ExecutionLog, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+logColumns+" FROM execution_logs ORDER BY executed_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

func decimalParam(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account          models.Account
		balance          string
		availableBalance string
		status           string
	)
	err := row.Scan(&account.ID, &account.AccountNumber, &account.UserID, &balance,
		&availableBalance, &status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	if account.AvailableBalance, err = decimal.NewFromString(availableBalance); err != nil {
		return nil, err
	}
	account.Status = models.AccountStatus(status)
	return &account, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order         models.Order
		orderType     string
		side          string
		limitPrice    *string
		status        string
		executedPrice *string
	)
	err := row.Scan(&order.ID, &order.OrderNumber, &order.AccountID, &order.Symbol, &orderType,
		&side, &order.Quantity, &limitPrice, &status, &executedPrice, &order.ExecutedQuantity,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Type = models.OrderType(orderType)
	order.Side = models.OrderSide(side)
	order.Status = models.OrderStatus(status)
	if order.LimitPrice, err = parseDecimalPtr(limitPrice); err != nil {
		return nil, err
	}
	if order.ExecutedPrice, err = parseDecimalPtr(executedPrice); err != nil {
		return nil, err
	}
	return &order, nil
}

func scanLog(row rowScanner) (*models.ExecutionLog, error) {
	var (
		entry       models.ExecutionLog
		price       string
		totalAmount string
		status      string
	)
	err := row.Scan(&entry.ID, &entry.OrderID, &entry.Quantity, &price, &totalAmount,
		&status, &entry.Message, &entry.ExecutedAt)
	if err != nil {
		return nil, err
	}
	if entry.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if entry.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, err
	}
	entry.Status = models.ExecutionStatus(status)
	return &entry, nil
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectAccounts(rows pgx.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func collectLogs(rows pgx.Rows) ([]models.ExecutionLog, error) {
	var logs []models.ExecutionLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}
		logs = append(logs, *entry)
	}
	return logs, rows.Err()
}
