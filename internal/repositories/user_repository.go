package repositories

import (
	"context"

	"pizzeria/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, email string) error
}

// StoreUserRepository keeps users in the users folder keyed by email.
type StoreUserRepository struct {
	recs recordRepo[models.User]
}

// NewStoreUserRepository creates a new instance of StoreUserRepository.
func NewStoreUserRepository(store Store) *StoreUserRepository {
	return &StoreUserRepository{recs: recordRepo[models.User]{store: store, folder: UsersFolder}}
}

// Create stores a new user. It fails with ErrAlreadyExists for a taken email.
func (r *StoreUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.recs.create(ctx, user.Email, user)
}

// GetByEmail retrieves a user by email.
func (r *StoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.recs.get(ctx, email)
}

// Update overwrites an existing user.
func (r *StoreUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.recs.update(ctx, user.Email, user)
}

// Delete removes a user by email.
func (r *StoreUserRepository) Delete(ctx context.Context, email string) error {
	return r.recs.delete(ctx, email)
}
