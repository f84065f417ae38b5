package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
)

// statusForError возвращает HTTP статус для доменной ошибки
func statusForError(err error) int {
	var notFound *domain.AccountNotFoundError
	var badCredentials *domain.BadCredentialsError
	var duplicate *domain.DuplicateAccountError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &badCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.Is(err, eventsourcing.ErrConcurrencyConflict):
		return http.StatusConflict
	case isTransactionError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// isTransactionError проверяет ошибки отклоненных банковских операций
func isTransactionError(err error) bool {
	var insufficientFunds *domain.InsufficientFundsError
	var accountClosed *domain.AccountClosedError
	var transaction *domain.TransactionError

	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.As(err, &insufficientFunds) ||
		errors.As(err, &accountClosed) ||
		errors.As(err, &transaction)
}

// respondError пишет JSON ответ об ошибке
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}
