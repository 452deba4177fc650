package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/gin-gonic/gin"
)

type CriteriaRepo interface {
	List(ctx context.Context) []criterion.Criterion
	GetByID(ctx context.Context, id string) (criterion.Criterion, error)
	Create(ctx context.Context, c criterion.Criterion) error
	Update(ctx context.Context, id string, p criterion.Patch) error
	Delete(ctx context.Context, id string) error
}

type CriteriaHandler struct {
	repo CriteriaRepo
}

func NewCriteriaHandler(repo CriteriaRepo) *CriteriaHandler {
	return &CriteriaHandler{repo: repo}
}

func (h *CriteriaHandler) List(ctx *gin.Context) {
	items := h.repo.List(ctx.Request.Context())
	if items == nil {
		items = []criterion.Criterion{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *CriteriaHandler) Create(ctx *gin.Context) {
	var req criterion.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, err := criterion.New(req)
	if err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}

	if err := h.repo.Create(ctx.Request.Context(), c); err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

func (h *CriteriaHandler) Update(ctx *gin.Context) {
	var req criterion.Patch
	if !BindJSON(ctx, &req) {
		return
	}

	patch, err := req.Normalize()
	if err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}

	id := ctx.Param("id")
	if err := h.repo.Update(ctx.Request.Context(), id, patch); err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}

	c, err := h.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}
	ctx.JSON(http.StatusOK, c)
}

// Delete leaves scores that reference the criterion in place; they no longer
// count towards weighted scores.
func (h *CriteriaHandler) Delete(ctx *gin.Context) {
	if err := h.repo.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err, "Criterion")
		return
	}

	ctx.Status(http.StatusNoContent)
}
