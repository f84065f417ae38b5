package domain

import (
	"crypto/sha512"
	"encoding/hex"
)

// PasswordHasher односторонняя хеш-функция учетных данных.
// Функция обязана быть чистой и стабильной: дайджесты хранятся в событиях,
// смена алгоритма ломает совместимость с ранее сохраненными данными.
type PasswordHasher interface {
	Hash(plaintext string) string
}

// SHA512PasswordHasher хеширование пароля через SHA-512 hex digest
type SHA512PasswordHasher struct{}

// NewSHA512PasswordHasher создает SHA-512 hasher
func NewSHA512PasswordHasher() *SHA512PasswordHasher {
	return &SHA512PasswordHasher{}
}

// Hash возвращает hex-представление SHA-512 от пароля
func (h *SHA512PasswordHasher) Hash(plaintext string) string {
	sum := sha512.Sum512([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
