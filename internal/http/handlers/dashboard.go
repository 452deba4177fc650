package handlers

import (
	"net/http"
	"sort"

	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const recentLimit = 5

type DashboardHandler struct {
	users    UserDirectory
	criteria CriteriaLookup
	evals    EvaluationsRepo
	engine   Summarizer
}

func NewDashboardHandler(users UserDirectory, criteria CriteriaLookup, evals EvaluationsRepo, e Summarizer) *DashboardHandler {
	return &DashboardHandler{users: users, criteria: criteria, evals: evals, engine: e}
}

// Get returns a role-specific overview of the caller's data.
func (h *DashboardHandler) Get(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	uid, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	names := h.users.Names(rctx)
	criteria := h.criteria.CriteriaMap(rctx)
	views := func(evals []evaluation.Evaluation) []EvaluationView {
		out := make([]EvaluationView, 0, len(evals))
		for _, ev := range evals {
			out = append(out, view(ev, names, criteria))
		}
		return out
	}

	switch role {
	case user.RoleAdmin:
		users := h.users.List(rctx)
		evals := h.evals.List(rctx)

		counts := gin.H{
			"users":       len(users),
			"admins":      countRole(users, user.RoleAdmin),
			"evaluators":  countRole(users, user.RoleEvaluator),
			"employees":   countRole(users, user.RoleEmployee),
			"criteria":    len(criteria),
			"evaluations": len(evals),
			"final":       countStatus(evals, evaluation.StatusFinal),
			"drafts":      countStatus(evals, evaluation.StatusDraft),
		}
		ctx.JSON(http.StatusOK, gin.H{"role": role, "counts": counts, "recent": views(recent(evals))})

	case user.RoleEvaluator:
		employees := h.users.ListByRole(rctx, user.RoleEmployee)
		profiles := make([]user.Profile, 0, len(employees))
		for _, e := range employees {
			profiles = append(profiles, e.Profile())
		}
		ctx.JSON(http.StatusOK, gin.H{
			"role":        role,
			"evaluations": views(h.evals.ListByEvaluator(rctx, uid)),
			"employees":   profiles,
		})

	default:
		ctx.JSON(http.StatusOK, gin.H{
			"role":        role,
			"evaluations": views(h.evals.ListByEmployee(rctx, uid)),
			"summary":     h.engine.EmployeeSummary(rctx, uid),
		})
	}
}

// recent returns up to recentLimit evaluations, newest first by creation
// time.
func recent(evals []evaluation.Evaluation) []evaluation.Evaluation {
	out := append([]evaluation.Evaluation(nil), evals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}

func countRole(users []user.User, role string) int {
	n := 0
	for _, u := range users {
		if u.Role == role {
			n++
		}
	}
	return n
}

func countStatus(evals []evaluation.Evaluation, status string) int {
	n := 0
	for _, ev := range evals {
		if ev.Status == status {
			n++
		}
	}
	return n
}
