package domain

import (
	"fmt"

	"github.com/akriventsev/bankcore/internal/events"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
)

// Account Event Sourced агрегат банковского счета.
//
// Счет никогда не сохраняет себя сам: команды проверяют инварианты и
// порождают события, сохранение выполняет репозиторий. После каждого
// примененного события выполняется balance + overdraftLimit >= 0.
// Закрытие необратимо: команды движения средств для закрытого счета
// отсекаются через CheckOpen на уровне приложения.
type Account struct {
	*eventsourcing.AggregateRoot
	hasher PasswordHasher

	fullName       string
	emailAddress   string
	hashedPassword string
	balance        int64
	overdraftLimit int64
	isClosed       bool
}

// NewAccount создает пустой агрегат для свертки истории
func NewAccount(id string, hasher PasswordHasher) *Account {
	account := &Account{hasher: hasher}
	account.AggregateRoot = eventsourcing.NewAggregateRoot(id, account)
	return account
}

// OpenAccount открывает новый счет: хеширует пароль и порождает
// событие открытия. Баланс 0, овердрафт 0, счет открыт.
func OpenAccount(id, fullName, emailAddress, password string, hasher PasswordHasher) (*Account, error) {
	account := NewAccount(id, hasher)
	event := &AccountOpenedEvent{
		BaseEvent:      events.NewBaseEvent(EventTypeAccountOpened, id),
		FullName:       fullName,
		EmailAddress:   emailAddress,
		HashedPassword: hasher.Hash(password),
	}
	if err := account.RaiseEvent(event); err != nil {
		return nil, err
	}
	return account, nil
}

// Credit пополняет счет. Проверку закрытости выполняет вызывающая
// сторона через CheckOpen до вызова команды.
func (a *Account) Credit(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return a.RaiseEvent(&AccountCreditedEvent{
		BaseEvent: events.NewBaseEvent(EventTypeAccountCredited, a.ID()),
		Amount:    amount,
	})
}

// Debit списывает средства. Списание допустимо пока
// balance + overdraftLimit >= amount.
func (a *Account) Debit(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if a.balance+a.overdraftLimit < amount {
		return &InsufficientFundsError{Balance: a.balance, Requested: amount}
	}
	return a.RaiseEvent(&AccountDebitedEvent{
		BaseEvent: events.NewBaseEvent(EventTypeAccountDebited, a.ID()),
		Amount:    amount,
	})
}

// SetOverdraftLimit устанавливает лимит овердрафта
func (a *Account) SetOverdraftLimit(limit int64) error {
	if limit < 0 {
		return ErrInvalidAmount
	}
	return a.RaiseEvent(&OverdraftLimitSetEvent{
		BaseEvent: events.NewBaseEvent(EventTypeOverdraftLimitSet, a.ID()),
		Limit:     limit,
	})
}

// Close закрывает счет. Обратной команды нет.
func (a *Account) Close() error {
	return a.RaiseEvent(&AccountClosedEvent{
		BaseEvent: events.NewBaseEvent(EventTypeAccountClosed, a.ID()),
	})
}

// CheckOpen чистая проверка, что счет не закрыт. Не порождает событий.
func (a *Account) CheckOpen() error {
	if a.isClosed {
		return &AccountClosedError{AccountID: a.ID()}
	}
	return nil
}

// Authenticate проверяет учетные данные без изменения состояния
func (a *Account) Authenticate(emailAddress, password string) error {
	if a.emailAddress != emailAddress || a.hashedPassword != a.hasher.Hash(password) {
		return &BadCredentialsError{EmailAddress: emailAddress}
	}
	return nil
}

// ChangePassword заменяет хеш пароля. Проверка текущего пароля
// выполняется вызывающей стороной.
func (a *Account) ChangePassword(newPassword string) error {
	return a.RaiseEvent(&PasswordChangedEvent{
		BaseEvent:      events.NewBaseEvent(EventTypePasswordChanged, a.ID()),
		HashedPassword: a.hasher.Hash(newPassword),
	})
}

// Apply свертка: применяет событие к состоянию счета
func (a *Account) Apply(event events.Event) error {
	switch e := event.(type) {
	case *AccountOpenedEvent:
		a.fullName = e.FullName
		a.emailAddress = e.EmailAddress
		a.hashedPassword = e.HashedPassword
		a.balance = 0
		a.overdraftLimit = 0
		a.isClosed = false
	case *AccountCreditedEvent:
		a.balance += e.Amount
	case *AccountDebitedEvent:
		a.balance -= e.Amount
	case *PasswordChangedEvent:
		a.hashedPassword = e.HashedPassword
	case *OverdraftLimitSetEvent:
		a.overdraftLimit = e.Limit
	case *AccountClosedEvent:
		a.isClosed = true
	default:
		return fmt.Errorf("unknown event type %T", event)
	}
	return nil
}

// GetFullName возвращает имя владельца
func (a *Account) GetFullName() string {
	return a.fullName
}

// GetEmailAddress возвращает email владельца
func (a *Account) GetEmailAddress() string {
	return a.emailAddress
}

// GetBalance возвращает баланс в центах
func (a *Account) GetBalance() int64 {
	return a.balance
}

// GetOverdraftLimit возвращает лимит овердрафта
func (a *Account) GetOverdraftLimit() int64 {
	return a.overdraftLimit
}

// IsClosed возвращает признак закрытия счета
func (a *Account) IsClosed() bool {
	return a.isClosed
}
