// Package engine computes weighted evaluation scores and per-employee
// summaries from the current contents of the criteria and evaluation files.
package engine

import (
	"context"
	"sort"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
)

type CriteriaSource interface {
	List(ctx context.Context) []criterion.Criterion
}

type EvaluationSource interface {
	ListByEmployee(ctx context.Context, employeeID string) []evaluation.Evaluation
}

type UserLister interface {
	ListByRole(ctx context.Context, role string) []user.User
}

type Engine struct {
	criteria    CriteriaSource
	evaluations EvaluationSource
}

func New(criteria CriteriaSource, evaluations EvaluationSource) *Engine {
	return &Engine{criteria: criteria, evaluations: evaluations}
}

type Summary struct {
	EmployeeID       string                 `json:"employee_id"`
	TotalEvaluations int                    `json:"total_evaluations"`
	FinalEvaluations int                    `json:"final_evaluations"`
	AverageScore     float64                `json:"average_score"`
	LatestScore      float64                `json:"latest_score"`
	LatestEvaluation *evaluation.Evaluation `json:"latest_evaluation"`
}

type EmployeeSummary struct {
	Summary
	EmployeeName string `json:"employee_name"`
	Email        string `json:"email"`
}

// CriteriaMap reads the criteria file on every call; nothing is cached.
func (e *Engine) CriteriaMap(ctx context.Context) map[string]criterion.Criterion {
	list := e.criteria.List(ctx)
	out := make(map[string]criterion.Criterion, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out
}

// WeightedScore is sum(score*weight) / sum(weight) over the scores whose
// criterion still exists. It is 0 when no weight remains.
func WeightedScore(scores map[string]int, criteria map[string]criterion.Criterion) float64 {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var weighted, total float64
	for _, id := range ids {
		c, ok := criteria[id]
		if !ok {
			continue
		}
		weighted += float64(scores[id]) * c.Weight
		total += c.Weight
	}

	if total <= 0 {
		return 0
	}
	return weighted / total
}

// EmployeeSummary aggregates every evaluation of employeeID. Only final
// evaluations contribute scores. LatestScore is the score of the first final
// evaluation in storage order; LatestEvaluation is the evaluation with the
// greatest date, the earliest stored one on ties.
func (e *Engine) EmployeeSummary(ctx context.Context, employeeID string) Summary {
	evals := e.evaluations.ListByEmployee(ctx, employeeID)
	if len(evals) == 0 {
		return Summary{EmployeeID: employeeID}
	}

	criteria := e.CriteriaMap(ctx)

	var scores []float64
	for _, ev := range evals {
		if ev.Status == evaluation.StatusFinal {
			scores = append(scores, WeightedScore(ev.Scores, criteria))
		}
	}

	s := Summary{
		EmployeeID:       employeeID,
		TotalEvaluations: len(evals),
		FinalEvaluations: len(scores),
	}

	if len(scores) > 0 {
		var sum float64
		for _, v := range scores {
			sum += v
		}
		s.AverageScore = sum / float64(len(scores))
		s.LatestScore = scores[0]
	}

	latest := evals[0]
	for _, ev := range evals[1:] {
		if ev.Date > latest.Date {
			latest = ev
		}
	}
	s.LatestEvaluation = &latest

	return s
}

// AllEmployeeSummaries returns one summary per employee-role user in storage
// order.
func (e *Engine) AllEmployeeSummaries(ctx context.Context, users UserLister) []EmployeeSummary {
	employees := users.ListByRole(ctx, user.RoleEmployee)
	out := make([]EmployeeSummary, 0, len(employees))

	for _, emp := range employees {
		out = append(out, EmployeeSummary{
			Summary:      e.EmployeeSummary(ctx, emp.ID),
			EmployeeName: emp.DisplayName(),
			Email:        emp.Email,
		})
	}
	return out
}
