package jsonfile

import (
	"context"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/geocoder89/perfeval/internal/store"
)

type UsersRepo struct {
	s   *store.Store
	log *slog.Logger
}

func NewUsersRepo(s *store.Store, log *slog.Logger) *UsersRepo {
	if log == nil {
		log = slog.Default()
	}
	return &UsersRepo{s: s, log: log}
}

// Records written before the active flag existed count as active.
func fillUser(r store.Record) {
	setDefault(r, "active", true)
}

func (r *UsersRepo) List(ctx context.Context) []user.User {
	return decodeAll[user.User](ctx, r.log, r.s.Load(ctx), fillUser)
}

func (r *UsersRepo) ListByRole(ctx context.Context, role string) []user.User {
	return decodeAll[user.User](ctx, r.log, r.s.FindBy(ctx, store.Filter{"role": role}), fillUser)
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) []user.User {
	return decodeAll[user.User](ctx, r.log, r.s.FindBy(ctx, store.Filter{"username": username}), fillUser)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	rec, ok := r.s.FindByID(ctx, id)
	if !ok {
		return user.User{}, repo.ErrNotFound
	}
	return decodeOne[user.User](rec, fillUser)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return create(ctx, r.s, u)
}

func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) error {
	return update(ctx, r.s, id, p)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.s, id)
}

// Names maps user id to display name.
func (r *UsersRepo) Names(ctx context.Context) map[string]string {
	users := r.List(ctx)
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.ID] = u.DisplayName()
	}
	return out
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.s.Ping(ctx)
}
