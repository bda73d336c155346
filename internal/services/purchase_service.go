package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pizzeria/internal/metrics"
	"pizzeria/internal/models"
	"pizzeria/internal/repositories"
	"pizzeria/pkg/mailgun"
	"pizzeria/pkg/stripe"

	log "github.com/sirupsen/logrus"
)

// PaymentGateway charges a card.
type PaymentGateway interface {
	Charge(ctx context.Context, ch stripe.Charge) error
}

// MailGateway delivers a plain text email.
type MailGateway interface {
	Send(ctx context.Context, msg mailgun.Message) error
}

// Settlement outcomes reported to metrics.
const (
	outcomeSettled       = "settled"
	outcomeRejected      = "rejected"
	outcomePaymentFailed = "payment_failed"
	outcomeUnreconciled  = "reconciliation_failed"
)

// PurchaseConfig carries the charge and receipt settings. In TestMode the
// charge receipt and the email go to TestEmail instead of the customer.
type PurchaseConfig struct {
	Currency     string
	CurrencySign string
	Source       string
	TestMode     bool
	TestEmail    string
	MailSender   string
	MailSubject  string
	MaxQuantity  int
	Now          func() time.Time
	Metrics      *metrics.Collectors
	Events       EventPublisher
}

// PurchaseService settles orders against the payment gateway.
type PurchaseService struct {
	orderRepo repositories.OrderRepository
	userRepo  repositories.UserRepository
	tokens    *TokenService
	catalog   *Catalog
	payments  PaymentGateway
	mail      MailGateway
	cfg       PurchaseConfig
	receipts  sync.WaitGroup
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(orderRepo repositories.OrderRepository, userRepo repositories.UserRepository, tokens *TokenService, catalog *Catalog, payments PaymentGateway, mail MailGateway, cfg PurchaseConfig) *PurchaseService {
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultMaxAmountPerOrderItem
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PurchaseService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		tokens:    tokens,
		catalog:   catalog,
		payments:  payments,
		mail:      mail,
		cfg:       cfg,
	}
}

// Settle charges the order, marks it paid, removes it from the pending list
// of the token's user and sends a receipt in the background.
//
// Any valid token can settle any order, and the pending list that gets
// reconciled is the token user's, not the order owner's. A paid order is not
// refused: settling it again charges the customer again.
func (s *PurchaseService) Settle(ctx context.Context, token string, orderID int64) (*models.Receipt, error) {
	tok, ok := s.tokens.Verify(ctx, token)
	if !ok {
		s.cfg.Metrics.ObserveSettlement(outcomeRejected)
		return nil, errInvalidToken
	}
	if err := checkOrderID(orderID); err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomeRejected)
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomeRejected)
		return nil, storageErr("read order", "order", repositories.OrderKey(orderID), err)
	}

	// Price a copy from the menu so stale stored prices are never charged.
	priced := *order
	if err := s.catalog.Price(&priced, s.cfg.MaxQuantity); err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomeRejected)
		// A stored order the menu rejects is bad data, not bad input.
		return nil, &StorageError{Op: "recheck order " + repositories.OrderKey(orderID), Err: err}
	}

	receiver := tok.Email
	if s.cfg.TestMode {
		receiver = s.cfg.TestEmail
	}
	receipt := &models.Receipt{
		OrderID:      order.ID,
		Amount:       toMinorUnits(priced.TotalPrice),
		Currency:     s.cfg.Currency,
		ReceiptEmail: receiver,
		Description:  describeOrder(&priced, s.cfg.CurrencySign),
	}

	logger := log.WithFields(log.Fields{
		"order_id": order.ID,
		"email":    tok.Email,
		"amount":   receipt.Amount,
	})

	// Exactly one attempt, and nothing has been written yet.
	err = s.payments.Charge(ctx, stripe.Charge{
		Amount:       receipt.Amount,
		Currency:     receipt.Currency,
		Source:       s.cfg.Source,
		Description:  receipt.Description,
		ReceiptEmail: receipt.ReceiptEmail,
	})
	if err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomePaymentFailed)
		logger.WithError(err).Warn("payment failed")
		return nil, paymentErr(err)
	}
	receipt.ChargedAt = s.cfg.Now().UTC()

	// From here on money has moved; every failure is a ReconciliationError.
	order.Paid = true
	if err := s.orderRepo.Update(ctx, order); err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomeUnreconciled)
		logger.WithError(err).Error("order charged but could not be marked paid")
		return nil, &ReconciliationError{OrderID: order.ID, Step: "mark order paid", Err: err}
	}
	if err := removePendingOrder(ctx, s.userRepo, tok.Email, order.ID); err != nil {
		s.cfg.Metrics.ObserveSettlement(outcomeUnreconciled)
		logger.WithError(err).Error("order charged but pending list is out of date")
		return nil, err
	}

	s.cfg.Metrics.ObserveSettlement(outcomeSettled)
	publishOrderEvent(s.cfg.Events, models.OrderPaid, order, receipt.ChargedAt)
	logger.Info("order settled")

	s.sendReceipt(ctx, receipt)
	return receipt, nil
}

// Wait blocks until every receipt email started so far has been attempted.
func (s *PurchaseService) Wait() {
	s.receipts.Wait()
}

// sendReceipt emails the receipt without blocking the caller. Failures are
// only logged.
func (s *PurchaseService) sendReceipt(ctx context.Context, receipt *models.Receipt) {
	if s.mail == nil {
		return
	}
	msg := mailgun.Message{
		From:    s.cfg.MailSender,
		To:      receipt.ReceiptEmail,
		Subject: s.cfg.MailSubject,
		Text:    receipt.Description,
	}
	ctx = context.WithoutCancel(ctx)

	s.receipts.Add(1)
	go func() {
		defer s.receipts.Done()
		logger := log.WithFields(log.Fields{"order_id": receipt.OrderID, "to": msg.To})
		if err := s.mail.Send(ctx, msg); err != nil {
			logger.WithError(err).Warn("failed to send receipt")
			return
		}
		logger.Debug("receipt sent")
	}()
}

func paymentErr(err error) error {
	var statusErr *stripe.StatusError
	if errors.As(err, &statusErr) {
		return &PaymentError{StatusCode: statusErr.Code, Err: err}
	}
	return &PaymentError{Err: err}
}

// describeOrder renders the human readable charge description.
func describeOrder(o *models.Order, sign string) string {
	var b strings.Builder
	b.WriteString("Your order: \n==========\n")
	fmt.Fprintf(&b, "%d * %s (%.2f %s) = %.2f %s\n", o.Quantity, o.ItemName, o.UnitPrice, sign, o.TotalPrice, sign)
	fmt.Fprintf(&b, "TOTAL: %.2f %s\n", o.TotalPrice, sign)
	b.WriteString("Your red-hot freshly-baked pizza is on its way!")
	return b.String()
}
