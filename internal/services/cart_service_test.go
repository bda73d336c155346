package services_test

import (
	"context"
	"errors"
	"testing"

	"pizzeria/internal/models"
	"pizzeria/internal/repositories"
	"pizzeria/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCartService_CreatePricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	order, err := env.cart.Create(ctx, token, 1, intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", order.UserEmail)
	assert.Equal(t, "Margherita", order.ItemName)
	assert.Equal(t, 9.99, order.UnitPrice)
	assert.Equal(t, 19.98, order.TotalPrice)
	assert.False(t, order.Paid)
	assert.Equal(t, env.clock.Now().UnixMilli(), order.ID)

	user, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{order.ID}, user.Orders)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, stored)
}

func TestCartService_CreateDefaultsQuantityToOne(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "bob@example.com")

	order, err := env.cart.Create(context.Background(), token, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, 12.5, order.TotalPrice)
}

func TestCartService_CreateRejectsSixthPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	for i := 0; i < services.DefaultMaxOrders; i++ {
		_, err := env.cart.Create(ctx, token, 1, intPtr(1))
		require.NoError(t, err, "order %d", i+1)
	}

	_, err := env.cart.Create(ctx, token, 1, intPtr(1))
	var capErr *services.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 5, capErr.Limit)

	user, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Len(t, user.Orders, 5)
	keys, err := env.store.List(ctx, repositories.OrdersFolder)
	require.NoError(t, err)
	assert.Len(t, keys, 5)
}

func TestCartService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "bob@example.com")

	tests := []struct {
		name     string
		itemID   int
		quantity int
		field    string
	}{
		{"missing item", 0, 1, "itemId"},
		{"unknown item", 99, 1, "itemId"},
		{"zero quantity", 1, 0, "quantity"},
		{"negative quantity", 1, -2, "quantity"},
		{"quantity above limit", 1, 11, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.cart.Create(context.Background(), token, tt.itemID, intPtr(tt.quantity))
			var validationErr *services.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	order, err := env.cart.Create(context.Background(), token, 1, intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, 99.9, order.TotalPrice)
}

func TestCartService_RequiresValidToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var authErr *services.AuthError

	_, err := env.cart.Create(ctx, "bogus", 1, nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, services.ReasonInvalidOrExpiredToken, authErr.Reason)

	_, err = env.cart.Get(ctx, "bogus", 1)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, services.ReasonInvalidOrExpiredToken, authErr.Reason)

	_, err = env.cart.Update(ctx, "bogus", 1, nil, intPtr(2))
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, services.ReasonInvalidOrExpiredToken, authErr.Reason)

	err = env.cart.Delete(ctx, "bogus", 1)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, services.ReasonInvalidOrExpiredToken, authErr.Reason)
}

func TestCartService_ChecksTokenBeforeInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	calls := map[string]func(token string) error{
		"create": func(token string) error {
			_, err := env.cart.Create(ctx, token, 0, nil)
			return err
		},
		"get": func(token string) error {
			_, err := env.cart.Get(ctx, token, 0)
			return err
		},
		"delete": func(token string) error {
			return env.cart.Delete(ctx, token, 0)
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var authErr *services.AuthError
			assert.ErrorAs(t, call("bogus"), &authErr)

			var validationErr *services.ValidationError
			assert.ErrorAs(t, call(token), &validationErr)
		})
	}

	// Update validates its payload first.
	_, err := env.cart.Update(ctx, "bogus", 0, nil, intPtr(2))
	var validationErr *services.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

// Reading an order only needs some valid token, not the owner's.
func TestCartService_GetDoesNotCheckOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.signupAndLogin(t, "bob@example.com")
	eve := env.signupAndLogin(t, "eve@example.com")

	order, err := env.cart.Create(ctx, bob, 3, intPtr(2))
	require.NoError(t, err)

	got, err := env.cart.Get(ctx, eve, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	_, err = env.cart.Get(ctx, eve, order.ID+1000)
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCartService_UpdateReprices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	order, err := env.cart.Create(ctx, token, 1, intPtr(2))
	require.NoError(t, err)

	updated, err := env.cart.Update(ctx, token, order.ID, nil, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, 29.97, updated.TotalPrice)

	updated, err = env.cart.Update(ctx, token, order.ID, intPtr(2), nil)
	require.NoError(t, err)
	assert.Equal(t, "Pepperoni", updated.ItemName)
	assert.Equal(t, 12.5, updated.UnitPrice)
	assert.Equal(t, 37.5, updated.TotalPrice)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

// Updating, unlike reading or deleting, requires the owner's token.
func TestCartService_UpdateEnforcesOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.signupAndLogin(t, "bob@example.com")
	eve := env.signupAndLogin(t, "eve@example.com")

	order, err := env.cart.Create(ctx, bob, 1, intPtr(2))
	require.NoError(t, err)

	_, err = env.cart.Update(ctx, eve, order.ID, nil, intPtr(5))
	var authErr *services.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, services.ReasonTokenNotOwnedByAccount, authErr.Reason)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
}

func TestCartService_UpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)

	var validationErr *services.ValidationError
	_, err = env.cart.Update(ctx, token, order.ID, nil, nil)
	assert.ErrorAs(t, err, &validationErr)

	_, err = env.cart.Update(ctx, token, order.ID, intPtr(42), nil)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "itemId", validationErr.Field)

	_, err = env.cart.Update(ctx, token, order.ID, nil, intPtr(11))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "quantity", validationErr.Field)

	_, err = env.cart.Update(ctx, token, order.ID+1, nil, intPtr(2))
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCartService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	first, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)
	second, err := env.cart.Create(ctx, token, 2, nil)
	require.NoError(t, err)

	require.NoError(t, env.cart.Delete(ctx, token, first.ID))

	_, err = env.orders.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	user, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID}, user.Orders)

	err = env.cart.Delete(ctx, token, first.ID)
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// Any valid token may delete any order. The id is then looked up in the
// deleting user's list, which does not hold it, so the order is gone but the
// call reports a reconciliation failure and the owner's list keeps a stale id.
func TestCartService_DeleteByAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.signupAndLogin(t, "bob@example.com")
	eve := env.signupAndLogin(t, "eve@example.com")

	order, err := env.cart.Create(ctx, bob, 1, nil)
	require.NoError(t, err)

	err = env.cart.Delete(ctx, eve, order.ID)
	var reconErr *services.ReconciliationError
	require.ErrorAs(t, err, &reconErr)
	assert.Equal(t, order.ID, reconErr.OrderID)

	_, err = env.orders.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	owner, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{order.ID}, owner.Orders)
}

func TestCartService_IDsAreUniqueWithinOneMillisecond(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	a, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)
	b, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, env.clock.Now().UnixMilli(), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
}

func TestCartService_CreateRollsBackOnUserUpdateFailure(t *testing.T) {
	store := &failingStore{
		Store:      repositories.NewMemoryStore(),
		failUpdate: map[string]error{repositories.UsersFolder: errors.New("disk full")},
	}
	env := newTestEnvWithStore(t, store)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	_, err := env.cart.Create(ctx, token, 1, nil)
	var storageErr *services.StorageError
	require.ErrorAs(t, err, &storageErr)

	keys, err := store.List(ctx, repositories.OrdersFolder)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCartService_PublishesEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")

	catalog, err := services.NewCatalog(testMenu())
	require.NoError(t, err)
	events := new(MockEventPublisher)
	cart := services.NewCartService(env.orders, env.users, env.tokens, catalog, services.CartConfig{
		Now:    env.clock.Now,
		Events: events,
	})

	events.On("PublishOrderEvent", mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.Type == models.OrderCreated && e.UserEmail == "bob@example.com" && e.TotalPrice == 9.99
	})).Return(nil).Once()
	// A broker failure does not fail the operation.
	events.On("PublishOrderEvent", mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.Type == models.OrderUpdated
	})).Return(errors.New("broker down")).Once()
	events.On("PublishOrderEvent", mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.Type == models.OrderDeleted
	})).Return(nil).Once()

	order, err := cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)
	_, err = cart.Update(ctx, token, order.ID, nil, intPtr(2))
	require.NoError(t, err)
	require.NoError(t, cart.Delete(ctx, token, order.ID))

	events.AssertExpectations(t)
}
