// Package admin проверяет токен администратора для изменяющих запросов API.
// models.go описывает попытки входа и параметры хеша.
package admin

import "time"

// LoginAttempt — попытка авторизации (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	ClientIP    string    `db:"client_ip"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// HashParams — параметры Argon2id.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultHashParams — 64 MB, 3 прохода, 2 потока.
var DefaultHashParams = HashParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	KeyLength:   32,
}

// Ограничение перебора: после maxFailedAttempts неудач IP блокируется на lockoutPeriod.
const (
	maxFailedAttempts = 3
	lockoutPeriod     = time.Hour
)
