package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pizzeria/internal/metrics"
	"pizzeria/internal/models"
	"pizzeria/internal/repositories"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxOrders             = 5
	DefaultMaxAmountPerOrderItem = 10
)

// CartConfig tunes the cart limits. Zero values fall back to the defaults.
type CartConfig struct {
	MaxOrders   int
	MaxQuantity int
	Now         func() time.Time
	Metrics     *metrics.Collectors
	Events      EventPublisher
}

// CartService manages a user's pending orders.
type CartService struct {
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	tokens      *TokenService
	catalog     *Catalog
	maxOrders   int
	maxQuantity int
	now         func() time.Time
	ids         *orderIDs
	metrics     *metrics.Collectors
	events      EventPublisher
}

// NewCartService creates a new CartService.
func NewCartService(orderRepo repositories.OrderRepository, userRepo repositories.UserRepository, tokens *TokenService, catalog *Catalog, cfg CartConfig) *CartService {
	s := &CartService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		tokens:      tokens,
		catalog:     catalog,
		maxOrders:   cfg.MaxOrders,
		maxQuantity: cfg.MaxQuantity,
		now:         cfg.Now,
		metrics:     cfg.Metrics,
		events:      cfg.Events,
	}
	if s.maxOrders <= 0 {
		s.maxOrders = DefaultMaxOrders
	}
	if s.maxQuantity <= 0 {
		s.maxQuantity = DefaultMaxAmountPerOrderItem
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.ids = &orderIDs{now: s.now}
	return s
}

// MaxQuantity is the largest accepted quantity for a single order.
func (s *CartService) MaxQuantity() int { return s.maxQuantity }

// Get returns the stored order.
//
// Any valid token can read any order; ownership is not checked here, unlike
// Update. Changing that needs a product decision.
func (s *CartService) Get(ctx context.Context, token string, id int64) (*models.Order, error) {
	if _, ok := s.tokens.Verify(ctx, token); !ok {
		return nil, errInvalidToken
	}
	if err := checkOrderID(id); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("read order", "order", repositories.OrderKey(id), err)
	}
	return order, nil
}

// Create adds an order for the token's user. A nil quantity means 1.
func (s *CartService) Create(ctx context.Context, token string, itemID int, quantity *int) (*models.Order, error) {
	tok, ok := s.tokens.Verify(ctx, token)
	if !ok {
		return nil, errInvalidToken
	}
	if itemID == 0 {
		return nil, &ValidationError{Field: "itemId", Message: "missing required field"}
	}

	user, err := s.userRepo.GetByEmail(ctx, tok.Email)
	if err != nil {
		return nil, storageErr("read user", "user", tok.Email, err)
	}
	if len(user.Orders) >= s.maxOrders {
		return nil, &CapacityError{Limit: s.maxOrders}
	}

	order := &models.Order{
		UserEmail: user.Email,
		ItemID:    itemID,
		Quantity:  1,
	}
	if quantity != nil {
		order.Quantity = *quantity
	}
	if err := s.catalog.Price(order, s.maxQuantity); err != nil {
		return nil, err
	}

	order.ID = s.ids.next()
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, &StorageError{Op: "create order", Err: err}
	}

	user.Orders = append(user.Orders, order.ID)
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Keep the order list and the order records consistent.
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			log.WithError(delErr).WithField("order_id", order.ID).Error("failed to roll back order after user update failure")
		}
		return nil, storageErr("update user", "user", user.Email, err)
	}

	s.metrics.OrderCreated()
	publishOrderEvent(s.events, models.OrderCreated, order, s.now())
	log.WithFields(log.Fields{
		"order_id": order.ID,
		"email":    user.Email,
		"item_id":  order.ItemID,
	}).Info("order created")
	return order, nil
}

// Update changes the item and/or quantity of an order and reprices it.
//
// Unlike Get, Delete and settlement, the token must belong to the order's
// owner.
func (s *CartService) Update(ctx context.Context, token string, id int64, itemID, quantity *int) (*models.Order, error) {
	// The payload is checked before the token here, unlike the other cart operations.
	if err := checkOrderID(id); err != nil {
		return nil, err
	}
	if itemID == nil && quantity == nil {
		return nil, &ValidationError{Message: "missing fields to update, specify itemId or quantity"}
	}
	if quantity != nil && (*quantity < 1 || *quantity > s.maxQuantity) {
		return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be between 1 and %d", s.maxQuantity)}
	}
	if itemID != nil {
		if _, ok := s.catalog.Item(*itemID); !ok {
			return nil, &ValidationError{Field: "itemId", Message: fmt.Sprintf("no menu item with id %d", *itemID)}
		}
	}
	if _, ok := s.tokens.Verify(ctx, token); !ok {
		return nil, errInvalidToken
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("read order", "order", repositories.OrderKey(id), err)
	}
	if !s.tokens.VerifyOwnedBy(ctx, token, order.UserEmail) {
		return nil, &AuthError{Reason: ReasonTokenNotOwnedByAccount}
	}

	if itemID != nil {
		order.ItemID = *itemID
	}
	if quantity != nil {
		order.Quantity = *quantity
	}
	if err := s.catalog.Price(order, s.maxQuantity); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, storageErr("update order", "order", repositories.OrderKey(id), err)
	}

	publishOrderEvent(s.events, models.OrderUpdated, order, s.now())
	return order, nil
}

// Delete removes an order and drops its id from the pending list of the
// token's user.
//
// Any valid token can delete any order. The id is removed from the token
// user's list, not necessarily the owner's, and an id missing from that list
// is reported as a ReconciliationError after the order is already gone.
func (s *CartService) Delete(ctx context.Context, token string, id int64) error {
	tok, ok := s.tokens.Verify(ctx, token)
	if !ok {
		return errInvalidToken
	}
	if err := checkOrderID(id); err != nil {
		return err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return storageErr("read order", "order", repositories.OrderKey(id), err)
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return storageErr("delete order", "order", repositories.OrderKey(id), err)
	}
	publishOrderEvent(s.events, models.OrderDeleted, order, s.now())

	if err := removePendingOrder(ctx, s.userRepo, tok.Email, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"order_id": id, "email": tok.Email}).Info("order deleted")
	return nil
}

var errOrderNotListed = errors.New("order is not in the pending list")

// checkOrderID rejects the zero id left by a missing or malformed id parameter.
func checkOrderID(id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return nil
}

// removePendingOrder drops id from the pending list of email. Every failure is
// a ReconciliationError because the caller has already changed the order.
func removePendingOrder(ctx context.Context, users repositories.UserRepository, email string, id int64) error {
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		return &ReconciliationError{OrderID: id, Step: "read user " + email, Err: err}
	}
	if !user.RemoveOrder(id) {
		return &ReconciliationError{OrderID: id, Step: "unlist order for " + email, Err: errOrderNotListed}
	}
	if err := users.Update(ctx, user); err != nil {
		return &ReconciliationError{OrderID: id, Step: "update user " + email, Err: err}
	}
	return nil
}
