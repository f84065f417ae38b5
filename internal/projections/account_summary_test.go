package projections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
)

func newProjectionFixture(t *testing.T) (*eventsourcing.InMemoryEventStore, *eventsourcing.Repository[*domain.Account], *AccountSummaryProjection, *Runner) {
	t.Helper()
	store := eventsourcing.NewInMemoryEventStore()
	hasher := domain.NewSHA512PasswordHasher()
	repo := eventsourcing.NewRepository(store, func(id string) *domain.Account {
		return domain.NewAccount(id, hasher)
	})
	summary := NewAccountSummaryProjection()
	runner := NewRunner(summary, store, NewInMemoryCheckpointStore(), DefaultRunnerConfig(), nil)
	return store, repo, summary, runner
}

func openAndSave(t *testing.T, repo *eventsourcing.Repository[*domain.Account], email string) *domain.Account {
	t.Helper()
	hasher := domain.NewSHA512PasswordHasher()
	account, err := domain.OpenAccount(domain.AccountIDForEmail(email), "Test User", email, "s3cret-password", hasher)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), account))
	return account
}

func TestAccountSummaryProjection_CatchUp(t *testing.T) {
	_, repo, summary, runner := newProjectionFixture(t)
	ctx := context.Background()

	account := openAndSave(t, repo, "alice@example.com")
	require.NoError(t, account.Credit(10000))
	require.NoError(t, account.SetOverdraftLimit(500))
	require.NoError(t, account.Debit(2500))
	require.NoError(t, repo.Save(ctx, account))

	require.NoError(t, runner.CatchUp(ctx))

	row, ok := summary.Get(account.ID())
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", row.EmailAddress)
	assert.Equal(t, int64(7500), row.Balance)
	assert.Equal(t, int64(500), row.OverdraftLimit)
	assert.False(t, row.IsClosed)
}

func TestAccountSummaryProjection_CheckpointResume(t *testing.T) {
	_, repo, summary, runner := newProjectionFixture(t)
	ctx := context.Background()

	account := openAndSave(t, repo, "alice@example.com")
	require.NoError(t, account.Credit(100))
	require.NoError(t, repo.Save(ctx, account))

	require.NoError(t, runner.CatchUp(ctx))
	// Повторный прогон без новых событий не меняет сводку
	require.NoError(t, runner.CatchUp(ctx))

	row, ok := summary.Get(account.ID())
	require.True(t, ok)
	assert.Equal(t, int64(100), row.Balance)

	require.NoError(t, account.Credit(50))
	require.NoError(t, repo.Save(ctx, account))
	require.NoError(t, runner.CatchUp(ctx))

	row, _ = summary.Get(account.ID())
	assert.Equal(t, int64(150), row.Balance)
}

func TestAccountSummaryProjection_Rebuild(t *testing.T) {
	_, repo, summary, runner := newProjectionFixture(t)
	ctx := context.Background()

	account := openAndSave(t, repo, "alice@example.com")
	require.NoError(t, account.Credit(100))
	require.NoError(t, repo.Save(ctx, account))
	require.NoError(t, runner.CatchUp(ctx))

	require.NoError(t, runner.Rebuild(ctx))

	row, ok := summary.Get(account.ID())
	require.True(t, ok)
	assert.Equal(t, int64(100), row.Balance)
}

func TestAccountSummaryProjection_SummariesSorted(t *testing.T) {
	_, repo, summary, runner := newProjectionFixture(t)
	ctx := context.Background()

	openAndSave(t, repo, "charlie@example.com")
	openAndSave(t, repo, "alice@example.com")
	openAndSave(t, repo, "bob@example.com")
	require.NoError(t, runner.CatchUp(ctx))

	rows := summary.Summaries()
	require.Len(t, rows, 3)
	assert.Equal(t, "alice@example.com", rows[0].EmailAddress)
	assert.Equal(t, "bob@example.com", rows[1].EmailAddress)
	assert.Equal(t, "charlie@example.com", rows[2].EmailAddress)
}

func TestAccountSummaryProjection_ClosedAccount(t *testing.T) {
	_, repo, summary, runner := newProjectionFixture(t)
	ctx := context.Background()

	account := openAndSave(t, repo, "alice@example.com")
	require.NoError(t, account.Close())
	require.NoError(t, repo.Save(ctx, account))
	require.NoError(t, runner.CatchUp(ctx))

	row, ok := summary.Get(account.ID())
	require.True(t, ok)
	assert.True(t, row.IsClosed)
}
