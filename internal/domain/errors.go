// Package domain содержит агрегат банковского счета и его события.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount возникает при отрицательной сумме операции
var ErrInvalidAmount = errors.New("amount cannot be negative")

// InsufficientFundsError возникает когда списание превышает
// баланс вместе с лимитом овердрафта
type InsufficientFundsError struct {
	Balance   int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: current balance is %d, but the requested amount is %d",
		e.Balance, e.Requested)
}

// AccountClosedError возникает при операции над закрытым счетом
type AccountClosedError struct {
	AccountID string
}

func (e *AccountClosedError) Error() string {
	return fmt.Sprintf("account %s is closed", e.AccountID)
}

// BadCredentialsError возникает при неуспешной аутентификации
type BadCredentialsError struct {
	EmailAddress string
}

func (e *BadCredentialsError) Error() string {
	return fmt.Sprintf("bad credentials for email address %s", e.EmailAddress)
}

// AccountNotFoundError возникает когда счет отсутствует в системе
type AccountNotFoundError struct {
	AccountID    string
	EmailAddress string
}

func (e *AccountNotFoundError) Error() string {
	if e.EmailAddress != "" {
		return fmt.Sprintf("account not found for email address %s", e.EmailAddress)
	}
	return fmt.Sprintf("account %s not found", e.AccountID)
}

// DuplicateAccountError возникает при повторной регистрации email
type DuplicateAccountError struct {
	EmailAddress string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account already exists for email address %s", e.EmailAddress)
}

// TransactionError возникает при недопустимом переводе
type TransactionError struct {
	Reason string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error: %s", e.Reason)
}
