package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/store"
)

// AuthService handles user registration and login. Registering opens a funded
// ACTIVE trading account for the new user.
type AuthService struct {
	store          store.Store
	secret         []byte
	initialDeposit decimal.Decimal
}

// NewAuthService creates a new auth service
func NewAuthService(st store.Store, secret []byte, initialDeposit decimal.Decimal) *AuthService {
	return &AuthService{store: st, secret: secret, initialDeposit: initialDeposit}
}

// Register creates a new user with a hashed password and an initial account
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, *models.Account, error) {
	if username == "" {
		return nil, nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, nil, fmt.Errorf("password cannot be empty")
	}
	if len(username) > 50 {
		return nil, nil, fmt.Errorf("username too long (max 50 characters)")
	}
	if len(password) > 100 {
		return nil, nil, fmt.Errorf("password too long (max 100 characters)")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.store.CreateUser(ctx, username, string(hashedPassword))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	account, err := s.store.CreateAccount(ctx, &models.Account{
		AccountNumber:    NewAccountNumber(),
		UserID:           user.ID,
		Balance:          s.initialDeposit,
		AvailableBalance: s.initialDeposit,
		Status:           models.AccountActive,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open account: %w", err)
	}

	return user, account, nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetUserFromToken extracts the user ID from a JWT
func (s *AuthService) GetUserFromToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(float64)
		if !ok {
			return 0, fmt.Errorf("invalid token claims")
		}
		return int64(userID), nil
	}
	return 0, fmt.Errorf("invalid token")
}

// NewAccountNumber generates a fresh account number
func NewAccountNumber() string {
	return "ACC-" + strings.ToUpper(uuid.NewString()[:8])
}
