package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestUserRepo_CreateAssignsSequentialIDs(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	a, err := r.Create(ctx, domain.User{Email: "A@x.com", Username: "A", PasswordHash: "h"})
	require.NoError(t, err)
	b, err := r.Create(ctx, domain.User{Email: "b@x.com", Username: "B", PasswordHash: "h"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, "a@x.com", a.Email)
	assert.Equal(t, domain.RoleViewer, a.RoleID)

	got, err := r.GetByEmail(ctx, " a@X.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestUserRepo_Create_DuplicateAndInvalidRole(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	_, err := r.Create(ctx, domain.User{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = r.Create(ctx, domain.User{Email: "A@X.COM"})
	assert.True(t, domain.Is(err, domain.CodeEmailAlreadyExists), "got %v", err)

	_, err = r.Create(ctx, domain.User{Email: "z@x.com", RoleID: domain.Role(42)})
	assert.True(t, domain.Is(err, domain.CodeInvalidRole), "got %v", err)
}

func TestUserRepo_Save_KeepsEmail(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	u, err := r.Create(ctx, domain.User{Email: "a@x.com", Username: "A"})
	require.NoError(t, err)

	u.Email = "hijack@x.com"
	u.Username = "B"
	u.IsActive = true
	saved, err := r.Save(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", saved.Email)
	assert.Equal(t, "B", saved.Username)
	assert.True(t, saved.IsActive)

	_, err = r.Save(ctx, domain.User{ID: 99, RoleID: domain.RoleViewer})
	assert.True(t, domain.Is(err, domain.CodeUserNotFound), "got %v", err)
}

func TestUserRepo_List_OrderedByID(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()
	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := r.Create(ctx, domain.User{Email: e})
		require.NoError(t, err)
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, u := range list {
		assert.Equal(t, int64(i+1), u.ID)
	}
}

func TestUserRepo_WithTx_CommitAndRollback(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	err := r.WithTx(ctx, func(tx account.UserRepo) error {
		_, err := tx.Create(ctx, domain.User{Email: "a@x.com"})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = r.WithTx(ctx, func(tx account.UserRepo) error {
		u, err := tx.GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		u.Username = "changed"
		if _, err := tx.Save(ctx, u); err != nil {
			return err
		}
		if _, err := tx.Create(ctx, domain.User{Email: "b@x.com"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, u.Username, "rolled back save must not be visible")
	_, err = r.GetByEmail(ctx, "b@x.com")
	assert.True(t, domain.Is(err, domain.CodeUserNotFound), "rolled back create must not be visible")

	// the id consumed by the rolled back insert is reused
	c, err := r.Create(ctx, domain.User{Email: "c@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.ID)
}

func TestUserRepo_WithTx_PanicLeavesStateUntouched(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	func() {
		defer func() { require.NotNil(t, recover()) }()
		_ = r.WithTx(ctx, func(tx account.UserRepo) error {
			_, _ = tx.Create(ctx, domain.User{Email: "a@x.com"})
			panic("kaput")
		})
	}()

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// lock released after the panic
	require.NoError(t, r.WithTx(ctx, func(account.UserRepo) error { return nil }))
}

func TestUserRepo_WithTx_CancelledContext(t *testing.T) {
	r := NewUserRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := r.WithTx(ctx, func(account.UserRepo) error { called = true; return nil })
	assert.True(t, domain.Is(err, domain.CodeDBUnavailable), "got %v", err)
	assert.False(t, called)
}

func TestUserRepo_ConcurrentDuplicateRegistration_OneWins(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.WithTx(ctx, func(tx account.UserRepo) error {
				_, err := tx.Create(ctx, domain.User{Email: "race@x.com"})
				return err
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	list, _ := r.List(ctx)
	assert.Len(t, list, 1)
}
