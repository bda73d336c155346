package mailgun

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// MaxSubjectLength is the longest subject accepted.
const MaxSubjectLength = 78

// Config holds the mail gateway connection details.
type Config struct {
	BaseURL string // e.g. https://api.mailgun.net
	Domain  string
	APIKey  string
	Timeout time.Duration
}

// Message is a plain text email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Validate checks addresses, subject length and body before sending.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("invalid receiver %q: %w", m.To, err)
	}
	subject := strings.TrimSpace(m.Subject)
	if subject == "" || len(subject) > MaxSubjectLength {
		return fmt.Errorf("subject must be 1 to %d characters", MaxSubjectLength)
	}
	if strings.TrimSpace(m.Text) == "" {
		return errors.New("message body is empty")
	}
	return nil
}

// StatusError is returned when the gateway answers with a non-success status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail gateway returned status %d", e.Code)
}

// Client sends messages through the Mailgun messages API.
type Client struct {
	cfg Config
}

// NewClient creates a new mail gateway client.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}
}

// Send validates msg and posts it as a form. Only 200 and 201 count as success.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("from", msg.From)
	args.Set("to", msg.To)
	args.Set("subject", msg.Subject)
	args.Set("text", msg.Text)

	agent := fiber.Post(fmt.Sprintf("%s/v3/%s/messages", c.cfg.BaseURL, c.cfg.Domain))
	agent.BasicAuth("api", c.cfg.APIKey)
	agent.Form(args)
	if c.cfg.Timeout > 0 {
		agent.Timeout(c.cfg.Timeout)
	}
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("failed to prepare mail request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("mail request failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK && code != fiber.StatusCreated {
		return &StatusError{Code: code, Body: string(body)}
	}
	return nil
}
