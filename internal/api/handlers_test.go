package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradesim/orderexec/internal/accounts"
	"github.com/tradesim/orderexec/internal/auth"
	"github.com/tradesim/orderexec/internal/engine"
	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/orders"
	"github.com/tradesim/orderexec/internal/pricing"
	"github.com/tradesim/orderexec/internal/store"
)

type testEnv struct {
	router *chi.Mux
	store  *store.MemoryStore
	token  string
	user   int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	eng := engine.New(pricing.New(rand.New(rand.NewSource(1))), zap.NewNop())
	orderSvc := orders.NewService(st, eng, zap.NewNop())
	accountSvc := accounts.NewService(st)
	authSvc := auth.NewAuthService(st, []byte("test-secret"), decimal.RequireFromString("100000.00"))

	handler := NewHandler(orderSvc, accountSvc, authSvc, zap.NewNop())
	router := chi.NewRouter()
	handler.Routes(router)

	env := &testEnv{router: router, store: st}

	// Register and log in a default user.
	resp := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "trader1",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	var registered struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))
	env.user = registered.ID

	resp = env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "trader1",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &login))
	env.token = login.Token

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) account(t *testing.T) *models.Account {
	t.Helper()
	list, err := e.store.ListAccountsByUser(context.Background(), e.user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return &list[0]
}

func orderBody(accountID int64, orderType, side string, quantity int, limitPrice string) map[string]interface{} {
	body := map[string]interface{}{
		"account_id": accountID,
		"symbol":     "AAPL",
		"type":       orderType,
		"side":       side,
		"quantity":   quantity,
	}
	if limitPrice != "" {
		body["limit_price"] = limitPrice
	}
	return body
}

func TestHandler_RegisterOpensFundedAccount(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	assert.Equal(t, models.AccountActive, account.Status)
	assert.Equal(t, "100000.00", account.AvailableBalance.StringFixed(2))
}

func TestHandler_CreateOrderExecutes(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	resp := env.do(t, http.MethodPost, "/api/orders",
		orderBody(account.ID, "LIMIT", "BUY", 100, "150.00"), env.token)
	require.Equal(t, http.StatusCreated, resp.Code)

	var order OrderResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &order))
	assert.Equal(t, "EXECUTED", order.Status)
	require.NotNil(t, order.ExecutedPrice)
	assert.Equal(t, "150.00", order.ExecutedPrice.StringFixed(2))

	// The fill must be visible through the account endpoint.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/%d", account.ID), nil, env.token)
	require.Equal(t, http.StatusOK, resp.Code)
	var acc AccountResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &acc))
	assert.Equal(t, "85000.00", acc.AvailableBalance.StringFixed(2))
}

func TestHandler_CreateOrderRejectionStillReturns201(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	resp := env.do(t, http.MethodPost, "/api/orders",
		orderBody(account.ID, "LIMIT", "BUY", 1000, "150.00"), env.token)
	require.Equal(t, http.StatusCreated, resp.Code)

	var order OrderResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &order))
	assert.Equal(t, "REJECTED", order.Status)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/execution-logs/order/%d", order.ID), nil, env.token)
	require.Equal(t, http.StatusOK, resp.Code)
	var logs []ExecutionLogResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "FAILED", logs[0].Status)
}

func TestHandler_CreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"BadJSON", "not-json", string(ErrorCodeValidation)},
		{"BadSide", orderBody(account.ID, "MARKET", "SHORT", 10, ""), string(ErrorCodeValidation)},
		{"MissingLimitPrice", orderBody(account.ID, "LIMIT", "BUY", 10, ""), string(ErrorCodeMissingLimitPrice)},
		{"UnknownAccount", orderBody(999, "MARKET", "BUY", 10, ""), string(ErrorCodeNotFound)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/orders", tt.body, env.token)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			if tt.code == string(ErrorCodeNotFound) {
				assert.Equal(t, http.StatusNotFound, resp.Code)
			} else {
				assert.Equal(t, http.StatusBadRequest, resp.Code)
			}
		})
	}
}

func TestHandler_CancelOrder(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	resp := env.do(t, http.MethodPost, "/api/orders",
		orderBody(account.ID, "LIMIT", "BUY", 1000, "150.00"), env.token)
	require.Equal(t, http.StatusCreated, resp.Code)
	var order OrderResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &order))
	require.Equal(t, "REJECTED", order.Status)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil, env.token)
	require.Equal(t, http.StatusOK, resp.Code)
	var cancelled OrderResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil, env.token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, string(ErrorCodeAlreadyCancelled), body.Code)
}

func TestHandler_GetOrderByNumber(t *testing.T) {
	env := newTestEnv(t)
	account := env.account(t)

	resp := env.do(t, http.MethodPost, "/api/orders",
		orderBody(account.ID, "MARKET", "BUY", 10, ""), env.token)
	require.Equal(t, http.StatusCreated, resp.Code)
	var order OrderResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &order))

	resp = env.do(t, http.MethodGet, "/api/orders/number/"+order.OrderNumber, nil, env.token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/orders/number/ORD-MISSING1", nil, env.token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandler_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/orders", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/orders", nil, env.token)
	assert.Equal(t, http.StatusOK, resp.Code)
}
