package repo

import (
	"context"

	"gorm.io/gorm"

	"content-api/internal/domain"
)

type UserRepo struct {
	t table[userModel]
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{t: table[userModel]{db: db}} }

func (r *UserRepo) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	m := userModel{Name: in.Name, Email: in.Email}
	if err := r.t.insert(ctx, &m); err != nil {
		return nil, translate(err, "user", 0)
	}
	u := m.toDomain()
	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, id uint) (*domain.User, error) {
	m, err := r.t.get(ctx, id)
	if err != nil {
		return nil, translate(err, "user", id)
	}
	u := m.toDomain()
	return &u, nil
}

func (r *UserRepo) All(ctx context.Context) ([]domain.User, error) {
	ms, err := r.t.list(ctx)
	if err != nil {
		return nil, translate(err, "user", 0)
	}
	return mapSlice(ms, userModel.toDomain), nil
}

func (r *UserRepo) Update(ctx context.Context, id uint, patch domain.UserPatch) (*domain.User, error) {
	if err := check(patch); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		fields["email"] = *patch.Email
	}
	m, err := r.t.update(ctx, id, fields)
	if err != nil {
		return nil, translate(err, "user", id)
	}
	u := m.toDomain()
	return &u, nil
}

// Delete removes the user row only. Owned articles are the coordinator's
// job; while any remain the foreign key rejects the delete.
func (r *UserRepo) Delete(ctx context.Context, id uint) (*domain.User, error) {
	m, err := r.t.delete(ctx, id)
	if err != nil {
		return nil, translateDelete(err, "user", id)
	}
	u := m.toDomain()
	return &u, nil
}
