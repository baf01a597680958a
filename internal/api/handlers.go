package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tradesim/orderexec/internal/accounts"
	"github.com/tradesim/orderexec/internal/auth"
	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/orders"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Orders      *orders.Service
	Accounts    *accounts.Service
	AuthService *auth.AuthService
	Log         *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(orderSvc *orders.Service, accountSvc *accounts.Service, authSvc *auth.AuthService, log *zap.Logger) *Handler {
	return &Handler{Orders: orderSvc, Accounts: accountSvc, AuthService: authSvc, Log: log}
}

// Routes mounts all endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Get("/orders/number/{orderNumber}", h.GetOrderByNumber)
		r.Get("/orders/account/{accountID}", h.ListOrdersByAccount)
		r.Put("/orders/{id}/cancel", h.CancelOrder)

		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Get("/accounts/number/{accountNumber}", h.GetAccountByNumber)
		r.Get("/accounts/user/{userID}", h.ListAccountsByUser)

		r.Get("/execution-logs", h.ListExecutionLogs)
		r.Get("/execution-logs/order/{orderID}", h.ListExecutionLogsByOrder)
	})
}

// Register handles user registration. The new user gets a funded account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, "username and password required")
		return
	}

	user, account, err := h.AuthService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"account":  toAccountResponse(account),
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, "invalid request body")
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, ErrorCodeValidation, "invalid credentials")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// JWTAuthMiddleware verifies JWT bearer tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			h.writeError(w, http.StatusUnauthorized, ErrorCodeValidation, "authorization header required")
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		userID, err := h.AuthService.GetUserFromToken(tokenString)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, ErrorCodeValidation, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CreateOrder places an order and runs its execution attempt. The response is
// 201 even when execution was rejected; the rejection is visible in the body.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, "invalid request body")
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), orders.CreateOrderRequest{
		AccountID:  req.AccountID,
		Symbol:     req.Symbol,
		Type:       models.OrderType(req.Type),
		Side:       models.OrderSide(req.Side),
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder retrieves an order by ID
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetOrderByNumber retrieves an order by its order number
func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.GetOrderByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListOrdersByAccount retrieves all orders for an account
func (h *Handler) ListOrdersByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	list, err := h.Orders.ListOrdersByAccount(r.Context(), accountID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponses(list))
}

// ListOrders retrieves all orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListOrders(r.Context())
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponses(list))
}

// CancelOrder cancels a not-yet-executed order
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.Orders.CancelOrder(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetAccount retrieves an account by ID
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.Accounts.GetAccount(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// GetAccountByNumber retrieves an account by its account number
func (h *Handler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) {
	account, err := h.Accounts.GetAccountByNumber(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// ListAccountsByUser retrieves all accounts owned by a user
func (h *Handler) ListAccountsByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	list, err := h.Accounts.ListAccountsByUser(r.Context(), userID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponses(list))
}

// ListAccounts retrieves all accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.ListAccounts(r.Context())
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponses(list))
}

// ListExecutionLogsByOrder retrieves an order's audit trail, most recent first
func (h *Handler) ListExecutionLogsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "orderID")
	if !ok {
		return
	}
	logs, err := h.Orders.ListExecutionLogsByOrder(r.Context(), orderID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toExecutionLogResponses(logs))
}

// ListExecutionLogs retrieves all execution logs, most recent first
func (h *Handler) ListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Orders.ListExecutionLogs(r.Context())
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toExecutionLogResponses(logs))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeValidation, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeMappedError(w http.ResponseWriter, err error) {
	status, body := MapError(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	h.writeJSON(w, status, ErrorResponse{Code: string(code), Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Log.Error("failed to encode response", zap.Error(err))
	}
}
