package repositories

import "context"

// recordRepo is the typed view over a single Store folder shared by the
// concrete repositories.
type recordRepo[T any] struct {
	store  Store
	folder string
}

func (r recordRepo[T]) create(ctx context.Context, key string, v *T) error {
	return r.store.Create(ctx, r.folder, key, v)
}

func (r recordRepo[T]) get(ctx context.Context, key string) (*T, error) {
	var v T
	if err := r.store.Read(ctx, r.folder, key, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r recordRepo[T]) update(ctx context.Context, key string, v *T) error {
	return r.store.Update(ctx, r.folder, key, v)
}

func (r recordRepo[T]) delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, r.folder, key)
}
