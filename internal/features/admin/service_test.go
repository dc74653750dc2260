package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/common"
)

// Лёгкие параметры, чтобы тесты не тратили 64 MB на каждый хеш.
var testParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32}

type memoryAttempts struct {
	mu       sync.Mutex
	attempts []LoginAttempt
}

func (m *memoryAttempts) LogAttempt(_ context.Context, clientIP string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, LoginAttempt{ClientIP: clientIP, AttemptTime: time.Now(), Success: success})
	return nil
}

func (m *memoryAttempts) RecentFailures(_ context.Context, clientIP string, period time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	since := time.Now().Add(-period)
	n := 0
	for _, a := range m.attempts {
		if a.ClientIP == clientIP && !a.Success && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func TestHashAndVerify(t *testing.T) {
	hash := HashToken("s3cret", []byte("0123456789abcdef"), testParams)
	assert.Contains(t, hash, "$argon2id$v=19$m=1024,t=1,p=1$")
	assert.True(t, verifyArgon2id("s3cret", hash))
	assert.False(t, verifyArgon2id("wrong", hash))
	assert.False(t, verifyArgon2id("s3cret", "not-a-hash"))
	assert.False(t, verifyArgon2id("s3cret", "$argon2id$v=19$m=x$salt$hash"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestAuthorize(t *testing.T) {
	store := &memoryAttempts{}
	svc := NewService(store, HashToken("s3cret", []byte("0123456789abcdef"), testParams))
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "10.0.0.1", "s3cret"))
	require.ErrorIs(t, svc.Authorize(ctx, "10.0.0.1", ""), common.ErrUnauthorized)
	assert.Len(t, store.attempts, 1)

	for i := 0; i < maxFailedAttempts; i++ {
		require.ErrorIs(t, svc.Authorize(ctx, "10.0.0.2", "guess"), common.ErrUnauthorized)
	}
	// Даже верный токен не проходит, пока IP заблокирован.
	require.ErrorIs(t, svc.Authorize(ctx, "10.0.0.2", "s3cret"), common.ErrTooManyAttempts)
	// Другой IP не затронут.
	require.NoError(t, svc.Authorize(ctx, "10.0.0.3", "s3cret"))
}

func TestAuthorizeConcurrentGuessesRespectLimit(t *testing.T) {
	store := &memoryAttempts{}
	svc := NewService(store, HashToken("s3cret", []byte("0123456789abcdef"), testParams))
	ctx := context.Background()

	const guesses = 12
	errs := make([]error, guesses)
	var wg sync.WaitGroup
	for i := range guesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Authorize(ctx, "10.0.0.9", "guess")
		}()
	}
	wg.Wait()

	var unauthorized, locked int
	for _, err := range errs {
		switch {
		case errors.Is(err, common.ErrUnauthorized):
			unauthorized++
		case errors.Is(err, common.ErrTooManyAttempts):
			locked++
		}
	}
	assert.Equal(t, maxFailedAttempts, unauthorized)
	assert.Equal(t, guesses-maxFailedAttempts, locked)
	assert.Len(t, store.attempts, maxFailedAttempts)
}
