// Package admin — service.go проверяет Bearer-токен по Argon2id-хешу
// с ограничением числа неудачных попыток на IP.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"funplay.vn/light-engine/internal/common"
)

// AttemptStore — журнал попыток.
type AttemptStore interface {
	LogAttempt(ctx context.Context, clientIP string, success bool) error
	RecentFailures(ctx context.Context, clientIP string, period time.Duration) (int, error)
}

// lockStripes — число мьютексов, по которым раскладываются IP.
const lockStripes = 64

// Service авторизует администратора.
type Service struct {
	repo      AttemptStore
	tokenHash string
	locks     [lockStripes]sync.Mutex
}

// NewService создаёт сервис. tokenHash — строка в формате $argon2id$...
func NewService(repo AttemptStore, tokenHash string) *Service {
	return &Service{repo: repo, tokenHash: tokenHash}
}

// Authorize проверяет токен. Пустой токен не считается попыткой.
func (s *Service) Authorize(ctx context.Context, clientIP, token string) error {
	if strings.TrimSpace(token) == "" {
		return common.ErrUnauthorized
	}

	// Проверка лимита, сверка и запись попытки для одного IP идут под одним мьютексом.
	mu := s.lockFor(clientIP)
	mu.Lock()
	defer mu.Unlock()

	// Проверяем лимит попыток
	failures, err := s.repo.RecentFailures(ctx, clientIP, lockoutPeriod)
	if err != nil {
		return err
	}
	if failures >= maxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(token, s.tokenHash)

	if err := s.repo.LogAttempt(ctx, clientIP, match); err != nil {
		log.WithError(err).WithField("client_ip", clientIP).Warn("Не удалось записать попытку")
	}
	if !match {
		log.WithField("client_ip", clientIP).Warn("Неверный токен администратора")
		return common.ErrUnauthorized
	}
	return nil
}

func (s *Service) lockFor(clientIP string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(clientIP))
	return &s.locks[h.Sum32()%lockStripes]
}

// HashToken строит хеш Argon2id в стандартном формате.
func HashToken(token string, salt []byte, p HashParams) string {
	hash := argon2.IDKey([]byte(token), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

// GenerateToken генерирует криптографически безопасный токен.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// verifyArgon2id проверяет токен против хеша Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func verifyArgon2id(token, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
