package projections

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
)

// AccountSummary строка read model по счету
type AccountSummary struct {
	AccountID      string    `json:"account_id"`
	FullName       string    `json:"full_name"`
	EmailAddress   string    `json:"email_address"`
	Balance        int64     `json:"balance"`
	OverdraftLimit int64     `json:"overdraft_limit"`
	IsClosed       bool      `json:"is_closed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountSummaryProjection поддерживает сводку по всем счетам в памяти.
// Сводка eventually consistent относительно хранилища событий.
type AccountSummaryProjection struct {
	mu        sync.RWMutex
	summaries map[string]*AccountSummary
}

// NewAccountSummaryProjection создает проекцию сводки счетов
func NewAccountSummaryProjection() *AccountSummaryProjection {
	return &AccountSummaryProjection{
		summaries: make(map[string]*AccountSummary),
	}
}

// Name возвращает имя проекции
func (p *AccountSummaryProjection) Name() string {
	return "account-summary"
}

// HandleEvent применяет событие к сводке
func (p *AccountSummaryProjection) HandleEvent(ctx context.Context, event eventsourcing.StoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	summary, exists := p.summaries[event.AggregateID]
	if !exists {
		summary = &AccountSummary{AccountID: event.AggregateID}
		p.summaries[event.AggregateID] = summary
	}

	switch e := event.EventData.(type) {
	case *domain.AccountOpenedEvent:
		summary.FullName = e.FullName
		summary.EmailAddress = e.EmailAddress
		summary.Balance = 0
		summary.OverdraftLimit = 0
		summary.IsClosed = false
	case *domain.AccountCreditedEvent:
		summary.Balance += e.Amount
	case *domain.AccountDebitedEvent:
		summary.Balance -= e.Amount
	case *domain.OverdraftLimitSetEvent:
		summary.OverdraftLimit = e.Limit
	case *domain.AccountClosedEvent:
		summary.IsClosed = true
	}
	summary.UpdatedAt = event.OccurredAt

	return nil
}

// Reset очищает сводку
func (p *AccountSummaryProjection) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = make(map[string]*AccountSummary)
	return nil
}

// Get возвращает сводку по счету
func (p *AccountSummaryProjection) Get(accountID string) (AccountSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary, exists := p.summaries[accountID]
	if !exists {
		return AccountSummary{}, false
	}
	return *summary, true
}

// Summaries возвращает сводки всех счетов, отсортированные по email
func (p *AccountSummaryProjection) Summaries() []AccountSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]AccountSummary, 0, len(p.summaries))
	for _, summary := range p.summaries {
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EmailAddress < result[j].EmailAddress
	})
	return result
}
