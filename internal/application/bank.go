// Package application содержит сервис банковских операций поверх
// Event Sourced репозитория счетов.
package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
	"github.com/akriventsev/bankcore/internal/metrics"
)

// AccountView проекция состояния счета для чтения
type AccountView struct {
	AccountID      string `json:"account_id"`
	FullName       string `json:"full_name"`
	EmailAddress   string `json:"email_address"`
	Balance        int64  `json:"balance"`
	OverdraftLimit int64  `json:"overdraft_limit"`
	IsClosed       bool   `json:"is_closed"`
}

// Bank сервис банковских операций.
//
// Сервис не хранит изменяемого состояния и безопасен для конкурентных
// вызовов: конкуренция на одном счете разрешается оптимистичными версиями
// хранилища, ErrConcurrencyConflict не ретраится и отдается вызывающей
// стороне. Ошибки агрегата и репозитория пробрасываются без подмены.
type Bank struct {
	repo    *eventsourcing.Repository[*domain.Account]
	hasher  domain.PasswordHasher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBank создает сервис банковских операций
func NewBank(repo *eventsourcing.Repository[*domain.Account], hasher domain.PasswordHasher, logger *zap.Logger) *Bank {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bank{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// WithMetrics устанавливает сборщик метрик
func (b *Bank) WithMetrics(m *metrics.Metrics) *Bank {
	b.metrics = m
	return b
}

func (b *Bank) record(ctx context.Context, operation string, start time.Time, err error) {
	if b.metrics != nil {
		b.metrics.RecordOperation(ctx, operation, time.Since(start), err)
	}
}

// loadAccount загружает счет, транслируя отсутствие потока в AccountNotFound
func (b *Bank) loadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := b.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, eventsourcing.ErrStreamNotFound) {
			return nil, &domain.AccountNotFoundError{AccountID: accountID}
		}
		return nil, err
	}
	return account, nil
}

// OpenAccount открывает счет с детерминированным id по email.
// Возвращает DuplicateAccountError если поток для этого email уже существует.
func (b *Bank) OpenAccount(ctx context.Context, fullName, emailAddress, password string) (id string, err error) {
	defer func(start time.Time) { b.record(ctx, "open_account", start, err) }(time.Now())

	accountID := domain.AccountIDForEmail(emailAddress)

	exists, err := b.repo.Exists(ctx, accountID)
	if err != nil {
		return "", err
	}
	if exists {
		return "", &domain.DuplicateAccountError{EmailAddress: emailAddress}
	}

	account, err := domain.OpenAccount(accountID, fullName, emailAddress, password, b.hasher)
	if err != nil {
		return "", err
	}
	if err = b.repo.Save(ctx, account); err != nil {
		return "", err
	}

	b.logger.Info("account opened",
		zap.String("account_id", accountID),
		zap.String("email_address", emailAddress))
	return accountID, nil
}

// ResolveAccountID возвращает детерминированный id счета для email.
// Функция чистая: живой агрегат с этим id имеет ровно этот же id.
func (b *Bank) ResolveAccountID(emailAddress string) string {
	return domain.AccountIDForEmail(emailAddress)
}

// Authenticate проверяет учетные данные и возвращает id счета
func (b *Bank) Authenticate(ctx context.Context, emailAddress, password string) (id string, err error) {
	defer func(start time.Time) { b.record(ctx, "authenticate", start, err) }(time.Now())

	accountID := domain.AccountIDForEmail(emailAddress)
	account, err := b.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, eventsourcing.ErrStreamNotFound) {
			return "", &domain.AccountNotFoundError{EmailAddress: emailAddress}
		}
		return "", err
	}
	if err = account.Authenticate(emailAddress, password); err != nil {
		return "", err
	}
	return accountID, nil
}

// GetAccount возвращает read view состояния счета
func (b *Bank) GetAccount(ctx context.Context, accountID string) (AccountView, error) {
	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{
		AccountID:      account.ID(),
		FullName:       account.GetFullName(),
		EmailAddress:   account.GetEmailAddress(),
		Balance:        account.GetBalance(),
		OverdraftLimit: account.GetOverdraftLimit(),
		IsClosed:       account.IsClosed(),
	}, nil
}

// GetBalance возвращает баланс счета в центах
func (b *Bank) GetBalance(ctx context.Context, accountID string) (int64, error) {
	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.GetBalance(), nil
}

// DepositFunds пополняет счет
func (b *Bank) DepositFunds(ctx context.Context, accountID string, amount int64) (err error) {
	defer func(start time.Time) { b.record(ctx, "deposit_funds", start, err) }(time.Now())

	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = account.CheckOpen(); err != nil {
		return err
	}
	if err = account.Credit(amount); err != nil {
		return err
	}
	return b.repo.Save(ctx, account)
}

// WithdrawFunds списывает средства со счета
func (b *Bank) WithdrawFunds(ctx context.Context, accountID string, amount int64) (err error) {
	defer func(start time.Time) { b.record(ctx, "withdraw_funds", start, err) }(time.Now())

	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = account.CheckOpen(); err != nil {
		return err
	}
	if err = account.Debit(amount); err != nil {
		return err
	}
	return b.repo.Save(ctx, account)
}

// TransferFunds атомарно переводит средства между двумя счетами.
// Оба потока фиксируются одним мультипоточным коммитом: либо списание и
// зачисление сохраняются вместе, либо не сохраняется ничего.
func (b *Bank) TransferFunds(ctx context.Context, sourceID, destinationID string, amount int64) (err error) {
	defer func(start time.Time) { b.record(ctx, "transfer_funds", start, err) }(time.Now())

	if sourceID == destinationID {
		return &domain.TransactionError{Reason: "cannot transfer to the same account"}
	}

	source, err := b.loadAccount(ctx, sourceID)
	if err != nil {
		return err
	}
	destination, err := b.loadAccount(ctx, destinationID)
	if err != nil {
		return err
	}

	if err = source.CheckOpen(); err != nil {
		return err
	}
	if err = destination.CheckOpen(); err != nil {
		return err
	}

	if err = source.Debit(amount); err != nil {
		return err
	}
	if err = destination.Credit(amount); err != nil {
		return err
	}

	return b.repo.Save(ctx, source, destination)
}

// ChangePassword меняет пароль после проверки текущего
func (b *Bank) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) (err error) {
	defer func(start time.Time) { b.record(ctx, "change_password", start, err) }(time.Now())

	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = account.Authenticate(account.GetEmailAddress(), currentPassword); err != nil {
		return err
	}
	if err = account.ChangePassword(newPassword); err != nil {
		return err
	}
	return b.repo.Save(ctx, account)
}

// SetOverdraftLimit устанавливает лимит овердрафта счета
func (b *Bank) SetOverdraftLimit(ctx context.Context, accountID string, limit int64) (err error) {
	defer func(start time.Time) { b.record(ctx, "set_overdraft_limit", start, err) }(time.Now())

	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = account.CheckOpen(); err != nil {
		return err
	}
	if err = account.SetOverdraftLimit(limit); err != nil {
		return err
	}
	return b.repo.Save(ctx, account)
}

// GetOverdraftLimit возвращает лимит овердрафта счета
func (b *Bank) GetOverdraftLimit(ctx context.Context, accountID string) (int64, error) {
	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.GetOverdraftLimit(), nil
}

// CloseAccount закрывает счет
func (b *Bank) CloseAccount(ctx context.Context, accountID string) (err error) {
	defer func(start time.Time) { b.record(ctx, "close_account", start, err) }(time.Now())

	account, err := b.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = account.Close(); err != nil {
		return err
	}
	if err = b.repo.Save(ctx, account); err != nil {
		return err
	}

	b.logger.Info("account closed", zap.String("account_id", accountID))
	return nil
}
