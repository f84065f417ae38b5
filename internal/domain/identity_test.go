package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountIDForEmail_Deterministic(t *testing.T) {
	first := AccountIDForEmail("alice@example.com")
	second := AccountIDForEmail("alice@example.com")
	assert.Equal(t, first, second)

	other := AccountIDForEmail("bob@example.com")
	assert.NotEqual(t, first, other)
}

func TestAccountIDForEmail_IsValidUUID(t *testing.T) {
	id, err := uuid.Parse(AccountIDForEmail("alice@example.com"))
	require.NoError(t, err)
	// Детерминированные идентификаторы имеют версию 5 (SHA-1)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestSHA512PasswordHasher(t *testing.T) {
	hasher := NewSHA512PasswordHasher()

	first := hasher.Hash("password")
	second := hasher.Hash("password")
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, hasher.Hash("other"))
	// SHA-512 hex digest
	assert.Len(t, first, 128)
}
