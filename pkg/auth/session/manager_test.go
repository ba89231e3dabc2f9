package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := value.([]byte); ok {
		m.data[key] = string(b)
	} else {
		m.data[key] = fmt.Sprint(value)
	}
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *mockStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.data, key)
	return v, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string { return "access:" + accessID }

func (m *mockStore) RefreshSessionKey(hash string) string { return "refresh:" + hash }

func (m *mockStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newTestManager(t *testing.T) (*Manager, *mockStore) {
	t.Helper()
	store := newMockStore()
	manager, err := newManager(store, store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)
	return manager, store
}

func TestGenerateStoresOnlyTheTokenHash(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	issued, err := manager.Generate(ctx, uuid.New(), enums.RoleVendor)
	require.NoError(t, err)
	require.Equal(t, 2, store.size())
	require.Equal(t, digest(issued.RefreshToken), store.data[store.AccessSessionKey(issued.AccessID)])
	for key, value := range store.data {
		require.NotContains(t, key, issued.RefreshToken)
		require.NotContains(t, value, issued.RefreshToken)
	}

	ok, err := manager.HasSession(ctx, issued.AccessID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = manager.Generate(ctx, uuid.Nil, enums.RoleCustomer)
	require.Error(t, err)
}

func TestRotateMintsNewIdentifiersOnce(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	issued, err := manager.Generate(ctx, userID, enums.RoleVendor)
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = manager.Rotate(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := manager.Rotate(ctx, issued.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, userID, next.UserID)
	require.Equal(t, enums.RoleVendor, next.Role)
	require.NotEqual(t, issued.AccessID, next.AccessID)
	require.NotEqual(t, issued.RefreshToken, next.RefreshToken)
	require.Equal(t, 2, store.size())

	old, err := manager.HasSession(ctx, issued.AccessID)
	require.NoError(t, err)
	require.False(t, old)

	_, err = manager.Rotate(ctx, issued.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestConcurrentRotationHasOneWinner(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	issued, err := manager.Generate(ctx, uuid.New(), enums.RoleCustomer)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Rotate(ctx, issued.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestRevokeClearsBothKeys(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	issued, err := manager.Generate(ctx, uuid.New(), enums.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, issued.RefreshToken))
	require.Zero(t, store.size())

	require.NoError(t, manager.Revoke(ctx, "unknown"))
}

func TestRevokeAccessClearsBothKeys(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	issued, err := manager.Generate(ctx, uuid.New(), enums.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, manager.RevokeAccess(ctx, issued.AccessID))
	require.Zero(t, store.size())

	require.NoError(t, manager.RevokeAccess(ctx, issued.AccessID))
	require.ErrorIs(t, manager.RevokeAccess(ctx, " "), errAccessIDRequired)

	_, err = manager.HasSession(ctx, "")
	require.ErrorIs(t, err, errAccessIDRequired)
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	store := newMockStore()
	_, err := newManager(store, store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
	_, err = newManager(store, store, config.JWTConfig{ExpirationMinutes: 60})
	require.Error(t, err)
}
