package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tradesim/orderexec/internal/accounts"
	"github.com/tradesim/orderexec/internal/api"
	"github.com/tradesim/orderexec/internal/auth"
	"github.com/tradesim/orderexec/internal/config"
	"github.com/tradesim/orderexec/internal/db"
	"github.com/tradesim/orderexec/internal/engine"
	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/orders"
	"github.com/tradesim/orderexec/internal/pricing"
	"github.com/tradesim/orderexec/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*wsClient]bool)
	clientsMu sync.RWMutex
)

const feedSize = 50

// broadcastExecutions pushes the most recent execution log entries to every
// connected websocket client.
func broadcastExecutions(svc *orders.Service, logger *zap.Logger) {
	logs, err := svc.ListExecutionLogs(context.Background())
	if err != nil {
		logger.Error("failed to load execution feed", zap.Error(err))
		return
	}
	if len(logs) > feedSize {
		logs = logs[:feedSize]
	}
	feed := struct {
		Executions []models.ExecutionLog `json:"executions"`
	}{Executions: logs}
	data, err := json.Marshal(feed)
	if err != nil {
		logger.Error("failed to marshal execution feed", zap.Error(err))
		return
	}

	clientsMu.RLock()
	defer clientsMu.RUnlock()
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			logger.Warn("failed to send execution feed", zap.Error(err))
		}
	}
}

func handleWebSocket(svc *orders.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade connection", zap.Error(err))
			return
		}

		client := &wsClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send the current feed on connect
		broadcastExecutions(svc, logger)

		// Keep connection alive and handle disconnection
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Main entry point: sets up stores, services, and the HTTP server
func main() {
	ctx := context.Background()
	cfg := config.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Pick the store: Postgres when DATABASE_URL is set, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		database, err := db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close()
		st = database
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	var rng *rand.Rand
	if cfg.PriceSeed != 0 {
		rng = rand.New(rand.NewSource(cfg.PriceSeed))
	}
	pricer := pricing.New(rng)
	eng := engine.New(pricer, logger)

	orderSvc := orders.NewService(st, eng, logger)
	accountSvc := accounts.NewService(st)
	authSvc := auth.NewAuthService(st, []byte(cfg.JWTSecret), cfg.InitialDeposit)

	handler := api.NewHandler(orderSvc, accountSvc, authSvc, logger)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.Routes(r)
	r.Get("/ws", handleWebSocket(orderSvc, logger))

	// Periodic execution feed broadcast
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		for range ticker.C {
			broadcastExecutions(orderSvc, logger)
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
