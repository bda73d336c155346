package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"pizzeria/internal/models"
	"pizzeria/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *repositories.GORMStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	store, err := repositories.NewGORMStore(db)
	require.NoError(t, err)
	return store
}

// Both implementations must satisfy the same contract.
func storeImplementations(t *testing.T) map[string]repositories.Store {
	return map[string]repositories.Store{
		"memory": repositories.NewMemoryStore(),
		"gorm":   newSQLiteStore(t),
	}
}

func TestStore_CRUD(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repositories.EnsureFolders(ctx, store))

			tok := models.Token{ID: "abc", Email: "a@example.com", Expires: 42}
			require.NoError(t, store.Create(ctx, repositories.TokensFolder, tok.ID, tok))

			err := store.Create(ctx, repositories.TokensFolder, tok.ID, tok)
			assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

			var got models.Token
			require.NoError(t, store.Read(ctx, repositories.TokensFolder, "abc", &got))
			assert.Equal(t, tok, got)

			tok.Expires = 99
			require.NoError(t, store.Update(ctx, repositories.TokensFolder, tok.ID, tok))
			require.NoError(t, store.Read(ctx, repositories.TokensFolder, "abc", &got))
			assert.Equal(t, int64(99), got.Expires)

			require.NoError(t, store.Delete(ctx, repositories.TokensFolder, "abc"))
			assert.ErrorIs(t, store.Read(ctx, repositories.TokensFolder, "abc", &got), repositories.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, repositories.TokensFolder, "abc"), repositories.ErrNotFound)
			assert.ErrorIs(t, store.Update(ctx, repositories.TokensFolder, "abc", tok), repositories.ErrNotFound)
		})
	}
}

func TestStore_ListAndListContaining(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, email := range []string{"carol@example.com", "alice@example.com", "bob_x@example.org"} {
				require.NoError(t, store.Create(ctx, repositories.UsersFolder, email, models.User{Email: email}))
			}
			require.NoError(t, store.Create(ctx, repositories.OrdersFolder, "1", models.Order{ID: 1}))

			keys, err := store.List(ctx, repositories.UsersFolder)
			require.NoError(t, err)
			assert.Equal(t, []string{"alice@example.com", "bob_x@example.org", "carol@example.com"}, keys)

			keys, err = store.ListContaining(ctx, repositories.UsersFolder, "example.com")
			require.NoError(t, err)
			assert.Equal(t, []string{"alice@example.com", "carol@example.com"}, keys)

			// Wildcard characters are matched literally.
			keys, err = store.ListContaining(ctx, repositories.UsersFolder, "_x")
			require.NoError(t, err)
			assert.Equal(t, []string{"bob_x@example.org"}, keys)

			keys, err = store.List(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestStoreRepositories(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()

	users := repositories.NewStoreUserRepository(store)
	orders := repositories.NewStoreOrderRepository(store)
	tokens := repositories.NewStoreTokenRepository(store)

	u := &models.User{Email: "alice@example.com", Orders: []int64{1700000000000}}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, u), repositories.ErrAlreadyExists)
	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.Orders, got.Orders)

	o := &models.Order{ID: 1700000000000, UserEmail: u.Email, Quantity: 2}
	require.NoError(t, orders.Create(ctx, o))
	keys, err := store.List(ctx, repositories.OrdersFolder)
	require.NoError(t, err)
	assert.Equal(t, []string{"1700000000000"}, keys)
	require.NoError(t, orders.Delete(ctx, o.ID))
	_, err = orders.GetByID(ctx, o.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	tok := &models.Token{ID: "tok", Email: u.Email, Expires: 5}
	require.NoError(t, tokens.Create(ctx, tok))
	tok.Expires = 10
	require.NoError(t, tokens.Update(ctx, tok))
	gotTok, err := tokens.GetByID(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(10), gotTok.Expires)
	require.NoError(t, users.Delete(ctx, u.Email))
}
