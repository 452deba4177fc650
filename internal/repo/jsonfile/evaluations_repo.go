package jsonfile

import (
	"context"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/geocoder89/perfeval/internal/store"
)

type EvaluationsRepo struct {
	s   *store.Store
	log *slog.Logger
}

func NewEvaluationsRepo(s *store.Store, log *slog.Logger) *EvaluationsRepo {
	if log == nil {
		log = slog.Default()
	}
	return &EvaluationsRepo{s: s, log: log}
}

func (r *EvaluationsRepo) List(ctx context.Context) []evaluation.Evaluation {
	return decodeAll[evaluation.Evaluation](ctx, r.log, r.s.Load(ctx), nil)
}

func (r *EvaluationsRepo) ListByEmployee(ctx context.Context, employeeID string) []evaluation.Evaluation {
	return decodeAll[evaluation.Evaluation](ctx, r.log, r.s.FindBy(ctx, store.Filter{"employee_id": employeeID}), nil)
}

func (r *EvaluationsRepo) ListByEvaluator(ctx context.Context, evaluatorID string) []evaluation.Evaluation {
	return decodeAll[evaluation.Evaluation](ctx, r.log, r.s.FindBy(ctx, store.Filter{"evaluator_id": evaluatorID}), nil)
}

func (r *EvaluationsRepo) GetByID(ctx context.Context, id string) (evaluation.Evaluation, error) {
	rec, ok := r.s.FindByID(ctx, id)
	if !ok {
		return evaluation.Evaluation{}, repo.ErrNotFound
	}
	return decodeOne[evaluation.Evaluation](rec, nil)
}

func (r *EvaluationsRepo) Create(ctx context.Context, ev evaluation.Evaluation) error {
	return create(ctx, r.s, ev)
}

func (r *EvaluationsRepo) Update(ctx context.Context, id string, p evaluation.Patch) error {
	return update(ctx, r.s, id, p)
}

func (r *EvaluationsRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.s, id)
}

func (r *EvaluationsRepo) Ping(ctx context.Context) error {
	return r.s.Ping(ctx)
}
