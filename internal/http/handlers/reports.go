package handlers

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/gin-gonic/gin"
)

type Summarizer interface {
	EmployeeSummary(ctx context.Context, employeeID string) engine.Summary
	AllEmployeeSummaries(ctx context.Context, users engine.UserLister) []engine.EmployeeSummary
}

type CriteriaLister interface {
	List(ctx context.Context) []criterion.Criterion
}

type EvaluationLister interface {
	List(ctx context.Context) []evaluation.Evaluation
}

type Exporter interface {
	EvaluationsDetail(evals []evaluation.Evaluation, criteria []criterion.Criterion, users []user.User, filename string) (string, error)
	EmployeeSummary(summaries []engine.EmployeeSummary, filename string) (string, error)
}

type ReportsHandler struct {
	engine   Summarizer
	users    UserDirectory
	criteria CriteriaLister
	evals    EvaluationLister
	exporter Exporter
	prom     *observability.Prom
}

func NewReportsHandler(e Summarizer, users UserDirectory, criteria CriteriaLister, evals EvaluationLister, exporter Exporter, prom *observability.Prom) *ReportsHandler {
	return &ReportsHandler{
		engine:   e,
		users:    users,
		criteria: criteria,
		evals:    evals,
		exporter: exporter,
		prom:     prom,
	}
}

func (h *ReportsHandler) Summaries(ctx *gin.Context) {
	items := h.engine.AllEmployeeSummaries(ctx.Request.Context(), h.users)
	ctx.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// EmployeeSummary is readable by admins, evaluators and the employee it
// describes.
func (h *ReportsHandler) EmployeeSummary(ctx *gin.Context) {
	id := ctx.Param("id")
	if !canReadEmployee(ctx, id) {
		RespondForbidden(ctx, "You can only view your own summary")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, engine.EmployeeSummary{
		Summary:      h.engine.EmployeeSummary(ctx.Request.Context(), id),
		EmployeeName: u.DisplayName(),
		Email:        u.Email,
	})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportDetail renders every evaluation with one column per criterion.
func (h *ReportsHandler) ExportDetail(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	path, err := h.exporter.EvaluationsDetail(
		h.evals.List(rctx),
		h.criteria.List(rctx),
		h.users.List(rctx),
		ctx.Query("filename"),
	)
	h.attach(ctx, "detail", path, err)
}

func (h *ReportsHandler) ExportSummary(ctx *gin.Context) {
	summaries := h.engine.AllEmployeeSummaries(ctx.Request.Context(), h.users)

	path, err := h.exporter.EmployeeSummary(summaries, ctx.Query("filename"))
	h.attach(ctx, "summary", path, err)
}

func (h *ReportsHandler) attach(ctx *gin.Context, kind, path string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	if h.prom != nil {
		h.prom.ExportsTotal.WithLabelValues(kind, result).Inc()
	}

	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not generate report")
		return
	}

	ctx.Header("Content-Type", xlsxContentType)
	ctx.FileAttachment(path, filepath.Base(path))
}
