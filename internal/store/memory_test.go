package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
)

func newTestAccount(t *testing.T, s *MemoryStore, number string) *models.Account {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "user-"+number, "hash")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	account, err := s.CreateAccount(ctx, &models.Account{
		AccountNumber:    number,
		UserID:           user.ID,
		Balance:          decimal.RequireFromString("100000.00"),
		AvailableBalance: decimal.RequireFromString("100000.00"),
		Status:           models.AccountActive,
	})
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func newTestOrder(t *testing.T, s *MemoryStore, accountID int64, number string) *models.Order {
	t.Helper()
	order, err := s.CreateOrder(context.Background(), &models.Order{
		OrderNumber: number,
		AccountID:   accountID,
		Symbol:      "AAPL",
		Type:        models.OrderTypeMarket,
		Side:        models.SideBuy,
		Quantity:    10,
		Status:      models.OrderPending,
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order
}

func TestMemoryStore_AccountLookups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-A")

	byID, err := s.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if byID.AccountNumber != "ACC-A" {
		t.Errorf("account number = %s, want ACC-A", byID.AccountNumber)
	}

	byNumber, err := s.GetAccountByNumber(ctx, "ACC-A")
	if err != nil {
		t.Fatalf("GetAccountByNumber: %v", err)
	}
	if byNumber.ID != account.ID {
		t.Errorf("id = %d, want %d", byNumber.ID, account.ID)
	}

	if _, err := s.GetAccount(ctx, 999); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-B")
	account.AvailableBalance = decimal.Zero

	reloaded, err := s.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got := reloaded.AvailableBalance.StringFixed(2); got != "100000.00" {
		t.Errorf("mutating a returned account leaked into the store: %s", got)
	}
}

func TestMemoryStore_OrderLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-C")
	order := newTestOrder(t, s, account.ID, "ORD-00000001")

	byNumber, err := s.GetOrderByNumber(ctx, "ORD-00000001")
	if err != nil {
		t.Fatalf("GetOrderByNumber: %v", err)
	}
	if byNumber.ID != order.ID {
		t.Errorf("id = %d, want %d", byNumber.ID, order.ID)
	}

	updated, err := s.UpdateOrderStatus(ctx, order.ID, models.OrderCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if updated.Status != models.OrderCancelled {
		t.Errorf("status = %s, want CANCELLED", updated.Status)
	}

	list, err := s.ListOrdersByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListOrdersByAccount: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 order, got %d", len(list))
	}

	if _, err := s.CreateOrder(ctx, &models.Order{AccountID: 999, OrderNumber: "ORD-X"}); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveExecutionCommitsTogether(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-D")
	order := newTestOrder(t, s, account.ID, "ORD-00000002")

	price := decimal.RequireFromString("150.00")
	order.Status = models.OrderExecuted
	order.ExecutedPrice = &price
	order.ExecutedQuantity = order.Quantity
	account.AvailableBalance = decimal.RequireFromString("98500.00")

	entry, err := s.SaveExecution(ctx, order, account, &models.ExecutionLog{
		Quantity:    order.Quantity,
		Price:       price,
		TotalAmount: decimal.RequireFromString("1500.00"),
		Status:      models.ExecutionSuccess,
		Message:     "Order executed successfully",
	})
	if err != nil {
		t.Fatalf("SaveExecution: %v", err)
	}
	if entry.ID == 0 || entry.OrderID != order.ID {
		t.Errorf("log entry not assigned identity: %+v", entry)
	}

	reloadedOrder, _ := s.GetOrder(ctx, order.ID)
	if reloadedOrder.Status != models.OrderExecuted {
		t.Errorf("order status = %s, want EXECUTED", reloadedOrder.Status)
	}
	reloadedAccount, _ := s.GetAccount(ctx, account.ID)
	if got := reloadedAccount.AvailableBalance.StringFixed(2); got != "98500.00" {
		t.Errorf("available balance = %s, want 98500.00", got)
	}

	logs, err := s.ListExecutionLogsByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListExecutionLogsByOrder: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
}

func TestMemoryStore_LogsMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-E")
	order := newTestOrder(t, s, account.ID, "ORD-00000003")

	for i := 0; i < 3; i++ {
		_, err := s.SaveExecution(ctx, order, account, &models.ExecutionLog{
			Status:  models.ExecutionFailed,
			Message: "attempt",
		})
		if err != nil {
			t.Fatalf("SaveExecution: %v", err)
		}
	}

	logs, err := s.ListExecutionLogsByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListExecutionLogsByOrder: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].ExecutedAt.After(logs[i-1].ExecutedAt) {
			t.Errorf("logs not in descending time order")
		}
	}
}

func TestMemoryStore_DeleteAccountCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "ACC-F")
	order := newTestOrder(t, s, account.ID, "ORD-00000004")
	if _, err := s.SaveExecution(ctx, order, account, &models.ExecutionLog{Status: models.ExecutionFailed}); err != nil {
		t.Fatalf("SaveExecution: %v", err)
	}

	if err := s.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if _, err := s.GetAccount(ctx, account.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("account survived deletion")
	}
	if _, err := s.GetOrder(ctx, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("order survived account deletion")
	}
	if _, err := s.GetOrderByNumber(ctx, "ORD-00000004"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("order number index survived account deletion")
	}
	logs, err := s.ListExecutionLogs(ctx)
	if err != nil {
		t.Fatalf("ListExecutionLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("execution logs survived account deletion")
	}
}
