package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/bankcore/internal/application"
	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
	"github.com/akriventsev/bankcore/internal/projections"
)

func newTestServer(t *testing.T) (*Server, *projections.Runner) {
	t.Helper()

	store := eventsourcing.NewInMemoryEventStore()
	hasher := domain.NewSHA512PasswordHasher()
	repo := eventsourcing.NewRepository(store, func(id string) *domain.Account {
		return domain.NewAccount(id, hasher)
	})
	bank := application.NewBank(repo, hasher, nil)

	summary := projections.NewAccountSummaryProjection()
	runner := projections.NewRunner(summary, store, projections.NewInMemoryCheckpointStore(),
		projections.DefaultRunnerConfig(), nil)

	issuer, err := NewTokenIssuer(AuthConfig{
		Secret:   "test-secret",
		Issuer:   "bankcore-test",
		TokenTTL: DefaultAuthConfig().TokenTTL,
	})
	require.NoError(t, err)

	handler := NewHandler(bank, issuer, summary, nil)
	server := NewServer(ServerConfig{
		Port:     0,
		BasePath: "/api/v1",
		Mode:     gin.TestMode,
	}, handler, issuer, nil, nil)
	return server, runner
}

func doRequest(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func signupAndLogin(t *testing.T, server *Server, email string) string {
	t.Helper()

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/signup", "", gin.H{
		"full_name":     "Test User",
		"email_address": email,
		"password":      "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/login", "", gin.H{
		"email_address": email,
		"password":      "s3cret-password",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	return decodeBody(t, recorder)["access_token"].(string)
}

func TestSignup(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/signup", "", gin.H{
		"full_name":     "Alice Smith",
		"email_address": "alice@example.com",
		"password":      "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, domain.AccountIDForEmail("alice@example.com"), decodeBody(t, recorder)["account_id"])

	// Повторная регистрация того же email отклоняется
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/signup", "", gin.H{
		"full_name":     "Alice Again",
		"email_address": "alice@example.com",
		"password":      "other-password",
	})
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestSignup_InvalidBody(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/signup", "", gin.H{
		"full_name":     "Alice",
		"email_address": "not-an-email",
		"password":      "s3cret-password",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/signup", "", gin.H{
		"full_name":     "Alice",
		"email_address": "alice@example.com",
		"password":      "short",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLogin(t *testing.T) {
	server, _ := newTestServer(t)
	signupAndLogin(t, server, "alice@example.com")

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/login", "", gin.H{
		"email_address": "alice@example.com",
		"password":      "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/login", "", gin.H{
		"email_address": "unknown@example.com",
		"password":      "s3cret-password",
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestAccountEndpoints_RequireAuth(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestDepositWithdrawBalance(t *testing.T) {
	server, _ := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", token, gin.H{"amount": 10000})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(10000), decodeBody(t, recorder)["balance"])

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/withdraw", token, gin.H{"amount": 2500})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(7500), decodeBody(t, recorder)["balance"])

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account/balance", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(7500), decodeBody(t, recorder)["balance"])

	// Списание сверх баланса отклоняется без изменения состояния
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/withdraw", token, gin.H{"amount": 100000})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account/balance", token, nil)
	assert.Equal(t, float64(7500), decodeBody(t, recorder)["balance"])
}

func TestDeposit_AmountValidation(t *testing.T) {
	server, _ := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")

	// Нулевая сумма проходит binding, решение принимает доменная модель
	recorder := doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", token, gin.H{"amount": 0})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(0), decodeBody(t, recorder)["balance"])

	// Отрицательную сумму отклоняет доменная модель
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", token, gin.H{"amount": -100})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// Запрос без суммы отклоняет binding
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestTransfer(t *testing.T) {
	server, _ := newTestServer(t)
	aliceToken := signupAndLogin(t, server, "alice@example.com")
	bobToken := signupAndLogin(t, server, "bob@example.com")

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", aliceToken, gin.H{"amount": 10000})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/transfer", aliceToken, gin.H{
		"destination_email": "bob@example.com",
		"amount":            4000,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(6000), decodeBody(t, recorder)["balance"])

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account/balance", bobToken, nil)
	assert.Equal(t, float64(4000), decodeBody(t, recorder)["balance"])

	// Перевод самому себе отклоняется
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/transfer", aliceToken, gin.H{
		"destination_email": "alice@example.com",
		"amount":            100,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// Перевод на несуществующий счет
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/transfer", aliceToken, gin.H{
		"destination_email": "unknown@example.com",
		"amount":            100,
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestChangePassword(t *testing.T) {
	server, _ := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")

	recorder := doRequest(t, server, http.MethodPut, "/api/v1/account/password", token, gin.H{
		"current_password": "wrong-password",
		"new_password":     "new-password-123",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest(t, server, http.MethodPut, "/api/v1/account/password", token, gin.H{
		"current_password": "s3cret-password",
		"new_password":     "new-password-123",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/login", "", gin.H{
		"email_address": "alice@example.com",
		"password":      "new-password-123",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestOverdraftEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")

	recorder := doRequest(t, server, http.MethodPut, "/api/v1/account/overdraft", token, gin.H{"limit": 500})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account/overdraft", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(500), decodeBody(t, recorder)["overdraft_limit"])

	// Овердрафт позволяет уйти в минус
	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/withdraw", token, gin.H{"amount": 500})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(-500), decodeBody(t, recorder)["balance"])
}

func TestCloseAccount(t *testing.T) {
	server, _ := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")

	recorder := doRequest(t, server, http.MethodDelete, "/api/v1/account", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, server, http.MethodPost, "/api/v1/account/deposit", token, gin.H{"amount": 100})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, server, http.MethodGet, "/api/v1/account", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["is_closed"])
}

func TestListAccounts(t *testing.T) {
	server, runner := newTestServer(t)
	token := signupAndLogin(t, server, "alice@example.com")
	signupAndLogin(t, server, "bob@example.com")

	require.NoError(t, runner.CatchUp(context.Background()))

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/accounts", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	accounts := decodeBody(t, recorder)["accounts"].([]interface{})
	require.Len(t, accounts, 2)
	first := accounts[0].(map[string]interface{})
	assert.Equal(t, "alice@example.com", first["email_address"])
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", decodeBody(t, recorder)["status"])
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(AuthConfig{
		Secret:   "test-secret",
		Issuer:   "bankcore-test",
		TokenTTL: DefaultAuthConfig().TokenTTL,
	})
	require.NoError(t, err)

	accountID := domain.AccountIDForEmail("alice@example.com")
	token, err := issuer.Issue(accountID)
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, subject)

	_, err = issuer.Verify("garbage")
	assert.Error(t, err)

	// Токен с другим секретом отклоняется
	other, err := NewTokenIssuer(AuthConfig{Secret: "other-secret", TokenTTL: DefaultAuthConfig().TokenTTL})
	require.NoError(t, err)
	foreign, err := other.Issue(accountID)
	require.NoError(t, err)
	_, err = issuer.Verify(foreign)
	assert.Error(t, err)
}
