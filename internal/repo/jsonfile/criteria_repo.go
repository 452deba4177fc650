package jsonfile

import (
	"context"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/geocoder89/perfeval/internal/store"
)

type CriteriaRepo struct {
	s   *store.Store
	log *slog.Logger
}

func NewCriteriaRepo(s *store.Store, log *slog.Logger) *CriteriaRepo {
	if log == nil {
		log = slog.Default()
	}
	return &CriteriaRepo{s: s, log: log}
}

func fillCriterion(r store.Record) {
	setDefault(r, "weight", criterion.DefaultWeight)
}

func (r *CriteriaRepo) List(ctx context.Context) []criterion.Criterion {
	return decodeAll[criterion.Criterion](ctx, r.log, r.s.Load(ctx), fillCriterion)
}

func (r *CriteriaRepo) GetByID(ctx context.Context, id string) (criterion.Criterion, error) {
	rec, ok := r.s.FindByID(ctx, id)
	if !ok {
		return criterion.Criterion{}, repo.ErrNotFound
	}
	return decodeOne[criterion.Criterion](rec, fillCriterion)
}

func (r *CriteriaRepo) Create(ctx context.Context, c criterion.Criterion) error {
	return create(ctx, r.s, c)
}

func (r *CriteriaRepo) Update(ctx context.Context, id string, p criterion.Patch) error {
	return update(ctx, r.s, id, p)
}

func (r *CriteriaRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.s, id)
}

func (r *CriteriaRepo) Ping(ctx context.Context) error {
	return r.s.Ping(ctx)
}
