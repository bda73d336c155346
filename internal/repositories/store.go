package repositories

import (
	"context"
	"errors"
)

// Folder names used by the application.
const (
	UsersFolder  = "users"
	OrdersFolder = "orders"
	TokensFolder = "tokens"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create when the key is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store is a keyed JSON record store partitioned into folders. Each single
// write is atomic; there is no cross-record locking and concurrent writers to
// the same key race with last-write-wins.
type Store interface {
	Create(ctx context.Context, folder, key string, record any) error
	Read(ctx context.Context, folder, key string, dst any) error
	Update(ctx context.Context, folder, key string, record any) error
	Delete(ctx context.Context, folder, key string) error
	List(ctx context.Context, folder string) ([]string, error)
	ListContaining(ctx context.Context, folder, substring string) ([]string, error)
	EnsureFolder(ctx context.Context, folder string) error
}

// EnsureFolders creates every application folder on s.
func EnsureFolders(ctx context.Context, s Store) error {
	for _, f := range []string{UsersFolder, OrdersFolder, TokensFolder} {
		if err := s.EnsureFolder(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
