// Package ledger holds the balance-reservation rules for accounts. Only the
// available balance moves here; the total balance is left to the caller.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradesim/orderexec/internal/models"
)

// ErrInsufficientFunds is returned when a reservation would drive the
// available balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError carries the amounts involved in a failed reservation
type InsufficientFundsError struct {
	AccountID int64
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account=%d required=%s available=%s",
		e.AccountID, e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Reserve commits amount of the account's available balance. The caller must
// hold the account's lock and persist the mutation in the same unit of work
// as the order and log writes.
func Reserve(account *models.Account, amount decimal.Decimal) error {
	if account.AvailableBalance.LessThan(amount) {
		return &InsufficientFundsError{
			AccountID: account.ID,
			Required:  amount,
			Available: account.AvailableBalance,
		}
	}
	account.AvailableBalance = account.AvailableBalance.Sub(amount)
	return nil
}

// Release returns amount to the account's available balance
func Release(account *models.Account, amount decimal.Decimal) {
	account.AvailableBalance = account.AvailableBalance.Add(amount)
}
