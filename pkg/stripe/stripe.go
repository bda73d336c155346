package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Config holds the payment gateway connection details.
type Config struct {
	BaseURL   string // e.g. https://api.stripe.com
	SecretKey string
	Timeout   time.Duration // zero keeps the transport default
}

// Charge is a single card charge. Amount is in minor units.
type Charge struct {
	Amount       int64
	Currency     string
	Source       string
	Description  string
	ReceiptEmail string
}

// StatusError is returned when the gateway answers with a non-success status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned status %d", e.Code)
}

// Client charges cards through the Stripe charges API. It makes exactly one
// attempt per call and sends no idempotency key.
type Client struct {
	cfg Config
}

// NewClient creates a new payment gateway client.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}
}

// Charge posts the charge as a form to /v1/charges. Only 200 and 201 count as
// success.
func (c *Client) Charge(ctx context.Context, ch Charge) error {
	if ch.Amount <= 0 {
		return errors.New("charge amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("amount", strconv.FormatInt(ch.Amount, 10))
	args.Set("currency", ch.Currency)
	args.Set("source", ch.Source)
	args.Set("description", ch.Description)
	args.Set("receipt_email", ch.ReceiptEmail)

	agent := fiber.Post(c.cfg.BaseURL + "/v1/charges")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.SecretKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Form(args)
	if c.cfg.Timeout > 0 {
		agent.Timeout(c.cfg.Timeout)
	}
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("failed to prepare charge request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("charge request failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK && code != fiber.StatusCreated {
		return &StatusError{Code: code, Body: string(body)}
	}
	return nil
}
