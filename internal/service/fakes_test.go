package service

import (
	"context"
	"sync"

	"dragbox/file-manager/internal/domain"
	"dragbox/file-manager/internal/repository"
	"dragbox/file-manager/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	r.users[user.Email] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// countingStorage records how often the backend is contacted.
type countingStorage struct {
	storage.FileStorage
	mu      sync.Mutex
	deletes int
}

func (c *countingStorage) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.FileStorage.DeleteObjects(ctx, keys)
}
