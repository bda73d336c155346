package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pizzeria/internal/repositories"
	"pizzeria/internal/services"
	"pizzeria/pkg/mailgun"
	"pizzeria/pkg/stripe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPurchaseService_Settle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, intPtr(2))
	require.NoError(t, err)

	wantDescription := "Your order: \n==========\n" +
		"2 * Margherita (9.99 $) = 19.98 $\n" +
		"TOTAL: 19.98 $\n" +
		"Your red-hot freshly-baked pizza is on its way!"

	env.payments.On("Charge", stripe.Charge{
		Amount:       1998,
		Currency:     "usd",
		Source:       "tok_visa",
		Description:  wantDescription,
		ReceiptEmail: "bob@example.com",
	}).Return(nil).Once()
	env.mail.On("Send", mailgun.Message{
		From:    "Pizza <noreply@example.com>",
		To:      "bob@example.com",
		Subject: "Pizza receipt",
		Text:    wantDescription,
	}).Return(nil).Once()

	receipt, err := env.purchase.Settle(ctx, token, order.ID)
	require.NoError(t, err)
	env.purchase.Wait()

	assert.Equal(t, order.ID, receipt.OrderID)
	assert.Equal(t, int64(1998), receipt.Amount)
	assert.Equal(t, "usd", receipt.Currency)
	assert.Equal(t, "bob@example.com", receipt.ReceiptEmail)
	assert.Equal(t, env.clock.Now(), receipt.ChargedAt)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paid)
	user, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.Orders)

	env.payments.AssertExpectations(t)
	env.mail.AssertExpectations(t)
}

func TestPurchaseService_PaymentFailureMutatesNothing(t *testing.T) {
	tests := []struct {
		name       string
		chargeErr  error
		statusCode int
	}{
		{"declined", &stripe.StatusError{Code: 402, Body: `{"error":"card_declined"}`}, 402},
		{"unreachable", errors.New("dial tcp: connection refused"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			token := env.signupAndLogin(t, "bob@example.com")
			order, err := env.cart.Create(ctx, token, 1, intPtr(2))
			require.NoError(t, err)

			env.payments.On("Charge", mock.Anything).Return(tt.chargeErr).Once()

			_, err = env.purchase.Settle(ctx, token, order.ID)
			var payErr *services.PaymentError
			require.ErrorAs(t, err, &payErr)
			assert.Equal(t, tt.statusCode, payErr.StatusCode)
			env.purchase.Wait()

			stored, err := env.orders.GetByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, order, stored)
			user, err := env.users.GetByEmail(ctx, "bob@example.com")
			require.NoError(t, err)
			assert.Equal(t, []int64{order.ID}, user.Orders)
			env.mail.AssertNotCalled(t, "Send", mock.Anything)
		})
	}
}

func TestPurchaseService_SettleRejectsBeforeCharging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)

	_, err = env.purchase.Settle(ctx, "bogus", order.ID)
	var authErr *services.AuthError
	assert.ErrorAs(t, err, &authErr)

	_, err = env.purchase.Settle(ctx, token, order.ID+1)
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = env.purchase.Settle(ctx, "bogus", 0)
	assert.ErrorAs(t, err, &authErr, "the token is checked before the id")

	_, err = env.purchase.Settle(ctx, token, 0)
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "id", validationErr.Field)

	// Stored data that no longer passes the menu limits is not charged, and
	// is reported as a processing failure rather than bad input.
	order.Quantity = 50
	require.NoError(t, env.orders.Update(ctx, order))
	_, err = env.purchase.Settle(ctx, token, order.ID)
	var storageErr *services.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "quantity", validationErr.Field)

	env.payments.AssertNotCalled(t, "Charge", mock.Anything)
}

func TestPurchaseService_ChargesCatalogPriceNotStoredPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, intPtr(2))
	require.NoError(t, err)

	order.UnitPrice = 0.01
	order.TotalPrice = 0.02
	require.NoError(t, env.orders.Update(ctx, order))

	env.payments.On("Charge", mock.MatchedBy(func(ch stripe.Charge) bool {
		return ch.Amount == 1998
	})).Return(nil).Once()
	env.mail.On("Send", mock.Anything).Return(nil)

	receipt, err := env.purchase.Settle(ctx, token, order.ID)
	require.NoError(t, err)
	env.purchase.Wait()
	assert.Equal(t, int64(1998), receipt.Amount)
	env.payments.AssertExpectations(t)
}

func TestPurchaseService_TestModeRedirectsReceipts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 3, nil)
	require.NoError(t, err)

	catalog, err := services.NewCatalog(testMenu())
	require.NoError(t, err)
	purchase := services.NewPurchaseService(env.orders, env.users, env.tokens, catalog, env.payments, env.mail, services.PurchaseConfig{
		Currency:     "eur",
		CurrencySign: "€",
		Source:       "tok_visa",
		TestMode:     true,
		TestEmail:    "qa@example.com",
		MailSender:   "Pizza <noreply@example.com>",
		MailSubject:  "Pizza receipt",
	})

	env.payments.On("Charge", mock.MatchedBy(func(ch stripe.Charge) bool {
		return ch.ReceiptEmail == "qa@example.com" && ch.Currency == "eur" &&
			strings.Contains(ch.Description, "1 * Garden Vegan (11.00 €) = 11.00 €")
	})).Return(nil).Once()
	env.mail.On("Send", mock.MatchedBy(func(msg mailgun.Message) bool {
		return msg.To == "qa@example.com"
	})).Return(nil).Once()

	receipt, err := purchase.Settle(ctx, token, order.ID)
	require.NoError(t, err)
	purchase.Wait()
	assert.Equal(t, "qa@example.com", receipt.ReceiptEmail)
	env.payments.AssertExpectations(t)
	env.mail.AssertExpectations(t)
}

func TestPurchaseService_MailFailureIsNotSurfaced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, nil)
	require.NoError(t, err)

	env.payments.On("Charge", mock.Anything).Return(nil).Once()
	env.mail.On("Send", mock.Anything).Return(&mailgun.StatusError{Code: 500}).Once()

	_, err = env.purchase.Settle(ctx, token, order.ID)
	require.NoError(t, err)
	env.purchase.Wait()
	env.mail.AssertExpectations(t)
}

func TestPurchaseService_ReconciliationFailures(t *testing.T) {
	tests := []struct {
		name       string
		failFolder string
		wantPaid   bool
	}{
		{"order cannot be marked paid", repositories.OrdersFolder, false},
		{"pending list cannot be saved", repositories.UsersFolder, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{Store: repositories.NewMemoryStore(), failUpdate: map[string]error{}}
			env := newTestEnvWithStore(t, store)
			ctx := context.Background()
			token := env.signupAndLogin(t, "bob@example.com")
			order, err := env.cart.Create(ctx, token, 1, nil)
			require.NoError(t, err)

			store.failUpdate[tt.failFolder] = errors.New("disk full")
			env.payments.On("Charge", mock.Anything).Return(nil).Once()

			_, err = env.purchase.Settle(ctx, token, order.ID)
			var reconErr *services.ReconciliationError
			require.ErrorAs(t, err, &reconErr)
			assert.Equal(t, order.ID, reconErr.OrderID)
			var payErr *services.PaymentError
			assert.False(t, errors.As(err, &payErr), "must be distinct from a payment failure")

			stored, err := env.orders.GetByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, stored.Paid)

			env.purchase.Wait()
			env.payments.AssertExpectations(t)
			env.mail.AssertNotCalled(t, "Send", mock.Anything)
		})
	}
}

// A paid order is not refused: the second settlement charges again and only
// fails afterwards because the id has already left the pending list.
func TestPurchaseService_SettleTwiceChargesTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	token := env.signupAndLogin(t, "bob@example.com")
	order, err := env.cart.Create(ctx, token, 1, intPtr(2))
	require.NoError(t, err)

	env.payments.On("Charge", mock.Anything).Return(nil)
	env.mail.On("Send", mock.Anything).Return(nil)

	_, err = env.purchase.Settle(ctx, token, order.ID)
	require.NoError(t, err)

	_, err = env.purchase.Settle(ctx, token, order.ID)
	var reconErr *services.ReconciliationError
	require.ErrorAs(t, err, &reconErr)
	env.purchase.Wait()

	env.payments.AssertNumberOfCalls(t, "Charge", 2)
	env.mail.AssertNumberOfCalls(t, "Send", 1)
	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paid)
}

// Any valid token can settle any order; the pending list reconciled is the
// payer's, so the owner's list keeps the id.
func TestPurchaseService_SettleWithAnotherUsersToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.signupAndLogin(t, "bob@example.com")
	eve := env.signupAndLogin(t, "eve@example.com")
	order, err := env.cart.Create(ctx, bob, 1, nil)
	require.NoError(t, err)

	env.payments.On("Charge", mock.MatchedBy(func(ch stripe.Charge) bool {
		return ch.ReceiptEmail == "eve@example.com"
	})).Return(nil).Once()

	_, err = env.purchase.Settle(ctx, eve, order.ID)
	var reconErr *services.ReconciliationError
	require.ErrorAs(t, err, &reconErr)

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paid)
	owner, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{order.ID}, owner.Orders)
	env.payments.AssertExpectations(t)
}
