package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tradesim/orderexec/internal/models"
)

// MemoryStore is an in-memory implementation of Store. Orders are kept under
// their owning account and execution logs under their owning order, so
// deleting an account drops its whole subtree.
type MemoryStore struct {
	mu sync.RWMutex

	nextUserID    int64
	nextAccountID int64
	nextOrderID   int64
	nextLogID     int64

	users       map[int64]*models.User
	usersByName map[string]int64

	accounts       map[int64]*accountRecord
	accountNumbers map[string]int64

	orderOwner   map[int64]int64  // order ID -> account ID
	orderNumbers map[string]int64 // order number -> order ID
}

type accountRecord struct {
	account models.Account
	orders  map[int64]*orderRecord
}

type orderRecord struct {
	order models.Order
	logs  []models.ExecutionLog
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:          make(map[int64]*models.User),
		usersByName:    make(map[string]int64),
		accounts:       make(map[int64]*accountRecord),
		accountNumbers: make(map[string]int64),
		orderOwner:     make(map[int64]int64),
		orderNumbers:   make(map[string]int64),
	}
}

// CreateUser inserts a new user
func (s *MemoryStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	user := &models.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[user.ID] = user
	s.usersByName[username] = user.ID

	copied := *user
	return &copied, nil
}

// GetUserByUsername retrieves a user by username
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

// CreateAccount inserts a new account
func (s *MemoryStore) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	now := time.Now()

	stored := *account
	stored.ID = s.nextAccountID
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.accounts[stored.ID] = &accountRecord{
		account: stored,
		orders:  make(map[int64]*orderRecord),
	}
	s.accountNumbers[stored.AccountNumber] = stored.ID

	copied := stored
	return &copied, nil
}

// GetAccount retrieves an account by ID
func (s *MemoryStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := rec.account
	return &copied, nil
}

// GetAccountByNumber retrieves an account by its account number
func (s *MemoryStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountNumbers[accountNumber]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := s.accounts[id].account
	return &copied, nil
}

// ListAccountsByUser retrieves all accounts owned by a user
func (s *MemoryStore) ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []models.Account
	for _, rec := range s.accounts {
		if rec.account.UserID == userID {
			accounts = append(accounts, rec.account)
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}

// ListAccounts retrieves all accounts
func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, rec := range s.accounts {
		accounts = append(accounts, rec.account)
	}
	sortAccounts(accounts)
	return accounts, nil
}

// DeleteAccount removes an account together with its orders and their logs
func (s *MemoryStore) DeleteAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	for orderID, ord := range rec.orders {
		delete(s.orderOwner, orderID)
		delete(s.orderNumbers, ord.order.OrderNumber)
	}
	delete(s.accountNumbers, rec.account.AccountNumber)
	delete(s.accounts, id)
	return nil
}

// CreateOrder inserts a new order under its account
func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[order.AccountID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	s.nextOrderID++
	now := time.Now()

	stored := *order
	stored.ID = s.nextOrderID
	stored.CreatedAt = now
	stored.UpdatedAt = now

	rec.orders[stored.ID] = &orderRecord{order: stored}
	s.orderOwner[stored.ID] = order.AccountID
	s.orderNumbers[stored.OrderNumber] = stored.ID

	copied := stored
	return &copied, nil
}

// GetOrder retrieves an order by ID
func (s *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.orderRecord(id)
	if err != nil {
		return nil, err
	}
	copied := rec.order
	return &copied, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *MemoryStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.orderNumbers[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	rec, err := s.orderRecord(id)
	if err != nil {
		return nil, err
	}
	copied := rec.order
	return &copied, nil
}

// ListOrdersByAccount retrieves all orders for an account
func (s *MemoryStore) ListOrdersByAccount(ctx context.Context, accountID int64) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	orders := make([]models.Order, 0, len(rec.orders))
	for _, ord := range rec.orders {
		orders = append(orders, ord.order)
	}
	sortOrders(orders)
	return orders, nil
}

// ListOrders retrieves all orders
func (s *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []models.Order
	for _, rec := range s.accounts {
		for _, ord := range rec.orders {
			orders = append(orders, ord.order)
		}
	}
	sortOrders(orders)
	return orders, nil
}

// UpdateOrderStatus updates an order's status
func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.orderRecord(id)
	if err != nil {
		return nil, err
	}
	rec.order.Status = status
	rec.order.UpdatedAt = time.Now()

	copied := rec.order
	return &copied, nil
}

// SaveExecution commits an execution attempt's outcome in one step: the
// updated order, the account's new balances and the log entry.
func (s *MemoryStore) SaveExecution(ctx context.Context, order *models.Order, account *models.Account, entry *models.ExecutionLog) (*models.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accRec, ok := s.accounts[account.ID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	ordRec, err := s.orderRecord(order.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	updatedOrder := *order
	updatedOrder.UpdatedAt = now
	ordRec.order = updatedOrder

	accRec.account.Balance = account.Balance
	accRec.account.AvailableBalance = account.AvailableBalance
	accRec.account.UpdatedAt = now

	s.nextLogID++
	stored := *entry
	stored.ID = s.nextLogID
	stored.OrderID = order.ID
	stored.ExecutedAt = now
	ordRec.logs = append(ordRec.logs, stored)

	copied := stored
	return &copied, nil
}

// ListExecutionLogsByOrder retrieves an order's logs, most recent first
func (s *MemoryStore) ListExecutionLogsByOrder(ctx context.Context, orderID int64) ([]models.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.orderRecord(orderID)
	if err != nil {
		return nil, err
	}
	logs := make([]models.ExecutionLog, len(rec.logs))
	copy(logs, rec.logs)
	sortLogsDesc(logs)
	return logs, nil
}

// ListExecutionLogs retrieves all execution logs, most recent first
func (s *MemoryStore) ListExecutionLogs(ctx context.Context) ([]models.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []models.ExecutionLog
	for _, rec := range s.accounts {
		for _, ord := range rec.orders {
			logs = append(logs, ord.logs...)
		}
	}
	sortLogsDesc(logs)
	return logs, nil
}

func (s *MemoryStore) orderRecord(id int64) (*orderRecord, error) {
	accountID, ok := s.orderOwner[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.accounts[accountID].orders[id], nil
}

func sortAccounts(accounts []models.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}

func sortOrders(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}

func sortLogsDesc(logs []models.ExecutionLog) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].ExecutedAt.Equal(logs[j].ExecutedAt) {
			return logs[i].ID > logs[j].ID
		}
		return logs[i].ExecutedAt.After(logs[j].ExecutedAt)
	})
}
