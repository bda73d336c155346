package services

import (
	"errors"
	"fmt"

	"pizzeria/internal/repositories"
)

// AuthReason tells why authentication failed.
type AuthReason string

const (
	ReasonNotFound               AuthReason = "not_found"
	ReasonInvalidCredentials     AuthReason = "invalid_credentials"
	ReasonInvalidOrExpiredToken  AuthReason = "invalid_or_expired_token"
	ReasonTokenNotOwnedByAccount AuthReason = "token_not_owned"
)

// ValidationError reports malformed or out-of-bounds input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthError reports a missing, invalid, expired or mis-owned credential.
type AuthError struct {
	Reason AuthReason
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return "user not found"
	case ReasonInvalidCredentials:
		return "invalid credentials"
	case ReasonTokenNotOwnedByAccount:
		return "token is not valid for this account"
	default:
		return "missing required token or token is invalid/expired"
	}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// CapacityError reports that a user already holds the maximum number of
// pending orders.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("the user already has the maximum number of orders (%d)", e.Limit)
}

// PaymentError reports a rejected or unreachable payment gateway. No state has
// been mutated when it is returned.
type PaymentError struct {
	StatusCode int
	Err        error
}

func (e *PaymentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("payment failed: %v", e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// ReconciliationError reports that the pending-order bookkeeping could not be
// brought in line with the order records. After a settlement it means money
// has moved and an operator has to fix the records by hand.
type ReconciliationError struct {
	OrderID int64
	Step    string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("order %d: %s failed: %v", e.OrderID, e.Step, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// StorageError wraps an underlying storage failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr maps a repository error to NotFoundError or StorageError.
func storageErr(op, entity, key string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return &StorageError{Op: op, Err: err}
}

var errInvalidToken = &AuthError{Reason: ReasonInvalidOrExpiredToken}
