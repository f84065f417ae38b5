package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/application"
	"github.com/akriventsev/bankcore/internal/projections"
)

// Handler обработчики HTTP запросов банковского сервиса
type Handler struct {
	bank    *application.Bank
	tokens  *TokenIssuer
	summary *projections.AccountSummaryProjection
	logger  *zap.Logger
}

// NewHandler создает Handler
func NewHandler(bank *application.Bank, tokens *TokenIssuer, summary *projections.AccountSummaryProjection, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bank:    bank,
		tokens:  tokens,
		summary: summary,
		logger:  logger,
	}
}

type signupRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	EmailAddress string `json:"email_address" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
}

// Signup открывает новый счет
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID, err := h.bank.OpenAccount(c.Request.Context(), req.FullName, req.EmailAddress, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account_id": accountID})
}

type loginRequest struct {
	EmailAddress string `json:"email_address" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
}

// Login проверяет учетные данные и выдает access токен
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID, err := h.bank.Authenticate(c.Request.Context(), req.EmailAddress, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(accountID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"account_id":   accountID,
	})
}

// GetAccount возвращает состояние счета
func (h *Handler) GetAccount(c *gin.Context) {
	view, err := h.bank.GetAccount(c.Request.Context(), AccountIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetBalance возвращает баланс счета
func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.bank.GetBalance(c.Request.Context(), AccountIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Сумма передается указателем: required проверяет присутствие поля,
// а допустимость значения (включая ноль) решает доменная модель
type amountRequest struct {
	Amount *int64 `json:"amount" binding:"required"`
}

// Deposit пополняет счет
func (h *Handler) Deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := AccountIDFromContext(c)
	if err := h.bank.DepositFunds(c.Request.Context(), accountID, *req.Amount); err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.bank.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Withdraw списывает средства со счета
func (h *Handler) Withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := AccountIDFromContext(c)
	if err := h.bank.WithdrawFunds(c.Request.Context(), accountID, *req.Amount); err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.bank.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type transferRequest struct {
	DestinationEmail string `json:"destination_email" binding:"required,email"`
	Amount           *int64 `json:"amount" binding:"required"`
}

// Transfer переводит средства на счет получателя по email
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sourceID := AccountIDFromContext(c)
	destinationID := h.bank.ResolveAccountID(req.DestinationEmail)

	if err := h.bank.TransferFunds(c.Request.Context(), sourceID, destinationID, *req.Amount); err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.bank.GetBalance(c.Request.Context(), sourceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword меняет пароль счета
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bank.ChangePassword(c.Request.Context(), AccountIDFromContext(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// GetOverdraftLimit возвращает лимит овердрафта
func (h *Handler) GetOverdraftLimit(c *gin.Context) {
	limit, err := h.bank.GetOverdraftLimit(c.Request.Context(), AccountIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overdraft_limit": limit})
}

type overdraftRequest struct {
	Limit int64 `json:"limit"`
}

// SetOverdraftLimit устанавливает лимит овердрафта
func (h *Handler) SetOverdraftLimit(c *gin.Context) {
	var req overdraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bank.SetOverdraftLimit(c.Request.Context(), AccountIDFromContext(c), req.Limit); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overdraft_limit": req.Limit})
}

// CloseAccount закрывает счет
func (h *Handler) CloseAccount(c *gin.Context) {
	if err := h.bank.CloseAccount(c.Request.Context(), AccountIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account closed"})
}

// ListAccounts возвращает сводку по всем счетам из проекции
func (h *Handler) ListAccounts(c *gin.Context) {
	if h.summary == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "account summary projection is not enabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.summary.Summaries()})
}

// Health возвращает статус сервиса
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
