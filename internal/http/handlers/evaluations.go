package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/gin-gonic/gin"
)

type EvaluationsRepo interface {
	List(ctx context.Context) []evaluation.Evaluation
	ListByEmployee(ctx context.Context, employeeID string) []evaluation.Evaluation
	ListByEvaluator(ctx context.Context, evaluatorID string) []evaluation.Evaluation
	GetByID(ctx context.Context, id string) (evaluation.Evaluation, error)
	Create(ctx context.Context, ev evaluation.Evaluation) error
	Update(ctx context.Context, id string, p evaluation.Patch) error
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the read side of the users repository.
type UserDirectory interface {
	List(ctx context.Context) []user.User
	ListByRole(ctx context.Context, role string) []user.User
	GetByID(ctx context.Context, id string) (user.User, error)
	Names(ctx context.Context) map[string]string
}

type CriteriaLookup interface {
	CriteriaMap(ctx context.Context) map[string]criterion.Criterion
}

type EvaluationsHandler struct {
	evals    EvaluationsRepo
	users    UserDirectory
	criteria CriteriaLookup
	rating   evaluation.Rating
	now      func() time.Time
}

func NewEvaluationsHandler(evals EvaluationsRepo, users UserDirectory, criteria CriteriaLookup, rating evaluation.Rating) *EvaluationsHandler {
	return &EvaluationsHandler{
		evals:    evals,
		users:    users,
		criteria: criteria,
		rating:   rating,
		now:      time.Now,
	}
}

// EvaluationView is an evaluation with the names and score a reader needs.
// Dangling user ids render as "Unknown".
type EvaluationView struct {
	evaluation.Evaluation
	EmployeeName  string  `json:"employee_name"`
	EvaluatorName string  `json:"evaluator_name"`
	WeightedScore float64 `json:"weighted_score"`
}

type ScoreLine struct {
	CriterionID   string  `json:"criterion_id"`
	CriterionName string  `json:"criterion_name"`
	Weight        float64 `json:"weight"`
	Score         int     `json:"score"`
	Counted       bool    `json:"counted"`
}

type EvaluationDetail struct {
	EvaluationView
	Breakdown []ScoreLine `json:"breakdown"`
}

type CreateEvaluationRequest struct {
	EmployeeID string         `json:"employee_id"`
	Scores     map[string]int `json:"scores"`
	Comments   string         `json:"comments"`
	Status     string         `json:"status"`
}

type UpdateEvaluationRequest struct {
	Scores   map[string]int `json:"scores"`
	Comments *string        `json:"comments"`
	Status   *string        `json:"status"`
}

func (h *EvaluationsHandler) List(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	uid, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	var evals []evaluation.Evaluation
	switch role {
	case user.RoleAdmin:
		evals = h.evals.List(rctx)
	case user.RoleEvaluator:
		evals = h.evals.ListByEvaluator(rctx, uid)
	default:
		evals = h.evals.ListByEmployee(rctx, uid)
	}

	status := ctx.Query("status")
	employeeID := ctx.Query("employee_id")

	names := h.users.Names(rctx)
	criteria := h.criteria.CriteriaMap(rctx)

	items := make([]EvaluationView, 0, len(evals))
	for _, ev := range evals {
		if status != "" && ev.Status != status {
			continue
		}
		if employeeID != "" && ev.EmployeeID != employeeID {
			continue
		}
		items = append(items, view(ev, names, criteria))
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *EvaluationsHandler) Get(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	ev, err := h.evals.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	if !canRead(ctx, ev) {
		RespondForbidden(ctx, "You can only view your own evaluations")
		return
	}

	criteria := h.criteria.CriteriaMap(rctx)
	ctx.JSON(http.StatusOK, EvaluationDetail{
		EvaluationView: view(ev, h.users.Names(rctx), criteria),
		Breakdown:      breakdown(ev.Scores, criteria),
	})
}

// Create records an evaluation authored by the caller.
func (h *EvaluationsHandler) Create(ctx *gin.Context) {
	var req CreateEvaluationRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rctx := ctx.Request.Context()
	uid, _ := middlewares.UserIDFromContext(ctx)
	criteria := h.criteria.CriteriaMap(rctx)

	var refs []validation.FieldError
	if req.EmployeeID != "" {
		emp, err := h.users.GetByID(rctx, req.EmployeeID)
		if err != nil || emp.Role != user.RoleEmployee {
			refs = append(refs, validation.Field("employee_id", "exists", ""))
		}
	}
	refs = append(refs, unknownCriteria(req.Scores, criteria)...)

	ev, err := evaluation.New(evaluation.CreateRequest{
		EmployeeID:  req.EmployeeID,
		EvaluatorID: uid,
		Scores:      req.Scores,
		Comments:    req.Comments,
		Status:      req.Status,
	}, h.rating)
	if err != nil {
		verr, ok := validation.As(err)
		if !ok {
			RespondServiceError(ctx, err, "Evaluation")
			return
		}
		refs = append(verr.Fields, refs...)
	}
	if err := validation.New(refs...); err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	if err := h.evals.Create(rctx, ev); err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	ctx.JSON(http.StatusCreated, view(ev, h.users.Names(rctx), criteria))
}

// Update is open to admins and to the evaluator who wrote the evaluation.
func (h *EvaluationsHandler) Update(ctx *gin.Context) {
	var req UpdateEvaluationRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rctx := ctx.Request.Context()
	id := ctx.Param("id")

	ev, err := h.evals.GetByID(rctx, id)
	if err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	uid, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)
	if role != user.RoleAdmin && ev.EvaluatorID != uid {
		RespondForbidden(ctx, "Only the author or an admin can edit this evaluation")
		return
	}

	patch, err := evaluation.Patch{Scores: req.Scores, Comments: req.Comments, Status: req.Status}.Normalize(h.rating)
	criteria := h.criteria.CriteriaMap(rctx)

	var fields []validation.FieldError
	if verr, ok := validation.As(err); ok {
		fields = verr.Fields
	}
	fields = append(fields, unknownCriteria(req.Scores, criteria)...)
	if err := validation.New(fields...); err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	if err := h.evals.Update(rctx, id, patch.Stamp(h.now())); err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	updated, err := h.evals.GetByID(rctx, id)
	if err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}
	ctx.JSON(http.StatusOK, view(updated, h.users.Names(rctx), criteria))
}

func (h *EvaluationsHandler) Delete(ctx *gin.Context) {
	if err := h.evals.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err, "Evaluation")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func canRead(ctx *gin.Context, ev evaluation.Evaluation) bool {
	uid, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	switch role {
	case user.RoleAdmin:
		return true
	case user.RoleEvaluator:
		return ev.EvaluatorID == uid || ev.EmployeeID == uid
	default:
		return ev.EmployeeID == uid
	}
}

func view(ev evaluation.Evaluation, names map[string]string, criteria map[string]criterion.Criterion) EvaluationView {
	return EvaluationView{
		Evaluation:    ev,
		EmployeeName:  nameOr(names, ev.EmployeeID),
		EvaluatorName: nameOr(names, ev.EvaluatorID),
		WeightedScore: engine.WeightedScore(ev.Scores, criteria),
	}
}

// breakdown lists every score by criterion id. Scores for deleted criteria
// are shown but not counted.
func breakdown(scores map[string]int, criteria map[string]criterion.Criterion) []ScoreLine {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ScoreLine, 0, len(ids))
	for _, id := range ids {
		line := ScoreLine{CriterionID: id, CriterionName: unknownName, Score: scores[id]}
		if c, ok := criteria[id]; ok {
			line.CriterionName = c.Name
			line.Weight = c.Weight
			line.Counted = true
		}
		out = append(out, line)
	}
	return out
}

func unknownCriteria(scores map[string]int, criteria map[string]criterion.Criterion) []validation.FieldError {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		if _, ok := criteria[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]validation.FieldError, 0, len(ids))
	for _, id := range ids {
		out = append(out, validation.Field("scores."+id, "exists", ""))
	}
	return out
}

func canReadEmployee(ctx *gin.Context, employeeID string) bool {
	uid, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)
	return role == user.RoleAdmin || role == user.RoleEvaluator || uid == employeeID
}
