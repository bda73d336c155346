package repositories

import (
	"context"

	"pizzeria/internal/models"
)

// TokenRepository defines the interface for token data access.
type TokenRepository interface {
	Create(ctx context.Context, token *models.Token) error
	GetByID(ctx context.Context, id string) (*models.Token, error)
	Update(ctx context.Context, token *models.Token) error
	Delete(ctx context.Context, id string) error
}

// StoreTokenRepository keeps tokens in the tokens folder keyed by token id.
type StoreTokenRepository struct {
	recs recordRepo[models.Token]
}

// NewStoreTokenRepository creates a new instance of StoreTokenRepository.
func NewStoreTokenRepository(store Store) *StoreTokenRepository {
	return &StoreTokenRepository{recs: recordRepo[models.Token]{store: store, folder: TokensFolder}}
}

func (r *StoreTokenRepository) Create(ctx context.Context, token *models.Token) error {
	return r.recs.create(ctx, token.ID, token)
}

func (r *StoreTokenRepository) GetByID(ctx context.Context, id string) (*models.Token, error) {
	return r.recs.get(ctx, id)
}

func (r *StoreTokenRepository) Update(ctx context.Context, token *models.Token) error {
	return r.recs.update(ctx, token.ID, token)
}

func (r *StoreTokenRepository) Delete(ctx context.Context, id string) error {
	return r.recs.delete(ctx, id)
}
