package domain

import "github.com/akriventsev/bankcore/internal/events"

// Типы событий счета
const (
	EventTypeAccountOpened     = "account.opened"
	EventTypeAccountCredited   = "account.credited"
	EventTypeAccountDebited    = "account.debited"
	EventTypePasswordChanged   = "account.password_changed"
	EventTypeOverdraftLimitSet = "account.overdraft_limit_set"
	EventTypeAccountClosed     = "account.closed"
)

// AccountOpenedEvent событие открытия счета
type AccountOpenedEvent struct {
	*events.BaseEvent
	FullName       string `json:"full_name"`
	EmailAddress   string `json:"email_address"`
	HashedPassword string `json:"hashed_password"`
}

// AccountCreditedEvent событие пополнения счета
type AccountCreditedEvent struct {
	*events.BaseEvent
	Amount int64 `json:"amount"`
}

// AccountDebitedEvent событие списания со счета
type AccountDebitedEvent struct {
	*events.BaseEvent
	Amount int64 `json:"amount"`
}

// PasswordChangedEvent событие смены пароля
type PasswordChangedEvent struct {
	*events.BaseEvent
	HashedPassword string `json:"hashed_password"`
}

// OverdraftLimitSetEvent событие установки лимита овердрафта
type OverdraftLimitSetEvent struct {
	*events.BaseEvent
	Limit int64 `json:"limit"`
}

// AccountClosedEvent событие закрытия счета
type AccountClosedEvent struct {
	*events.BaseEvent
}
