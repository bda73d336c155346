package services_test

import (
	"context"
	"fmt"
	"testing"

	"pizzeria/internal/repositories"
	"pizzeria/internal/services"
	"pizzeria/pkg/mailgun"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func scenarioStores(t *testing.T) map[string]repositories.Store {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	gormStore, err := repositories.NewGORMStore(db)
	require.NoError(t, err)
	return map[string]repositories.Store{
		"memory": repositories.NewMemoryStore(),
		"sqlite": gormStore,
	}
}

func TestScenario_SignupOrderAndSettle(t *testing.T) {
	for name, store := range scenarioStores(t) {
		t.Run(name, func(t *testing.T) {
			env := newTestEnvWithStore(t, store)
			ctx := context.Background()

			_, err := env.accounts.Signup(ctx, services.SignupRequest{
				FirstName:     "Alice",
				LastName:      "Liddell",
				Email:         "alice@example.com",
				Password:      "password123",
				StreetAddress: "12 Rabbit Hole",
				TOSAgreement:  true,
			})
			require.NoError(t, err)

			token, err := env.tokens.Issue(ctx, "alice@example.com", "password123")
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", token.Email)

			order, err := env.cart.Create(ctx, token.ID, 1, intPtr(2))
			require.NoError(t, err)
			assert.Equal(t, 2, order.Quantity)
			assert.Equal(t, 9.99, order.UnitPrice)
			assert.Equal(t, 19.98, order.TotalPrice)
			assert.False(t, order.Paid)

			order, err = env.cart.Update(ctx, token.ID, order.ID, nil, intPtr(3))
			require.NoError(t, err)
			assert.Equal(t, 29.97, order.TotalPrice)

			env.payments.On("Charge", mock.Anything).Return(nil).Once()
			env.mail.On("Send", mock.MatchedBy(func(msg mailgun.Message) bool {
				return msg.To == "alice@example.com"
			})).Return(nil).Once()

			receipt, err := env.purchase.Settle(ctx, token.ID, order.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2997), receipt.Amount)
			env.purchase.Wait()

			settled, err := env.cart.Get(ctx, token.ID, order.ID)
			require.NoError(t, err)
			assert.True(t, settled.Paid)

			alice, err := env.accounts.Get(ctx, token.ID, "alice@example.com")
			require.NoError(t, err)
			assert.NotContains(t, alice.Orders, order.ID)

			env.payments.AssertExpectations(t)
			env.mail.AssertExpectations(t)
		})
	}
}
