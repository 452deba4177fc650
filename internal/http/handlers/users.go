package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserAdmin interface {
	CreateUser(ctx context.Context, req user.CreateRequest) (string, error)
	ResetPassword(ctx context.Context, id, newPassword string) bool
}

type UsersRepo interface {
	List(ctx context.Context) []user.User
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, p user.Patch) error
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	admin UserAdmin
	users UsersRepo
}

func NewUsersHandler(admin UserAdmin, users UsersRepo) *UsersHandler {
	return &UsersHandler{admin: admin, users: users}
}

// UpdateUserRequest never carries a password; see ResetPassword.
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

func (h *UsersHandler) List(ctx *gin.Context) {
	users := h.users.List(ctx.Request.Context())

	items := make([]user.Profile, 0, len(users))
	role := ctx.Query("role")
	for _, u := range users {
		if role == "" || u.Role == role {
			items = append(items, u.Profile())
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id, err := h.admin.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusCreated, u.Profile())
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	u, err := h.users.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	patch := user.Patch{
		FullName: trimmed(req.FullName),
		Email:    trimmed(req.Email),
		Role:     trimmed(req.Role),
		Active:   req.Active,
	}
	if patch.Empty() {
		RespondBadRequest(ctx, "Nothing to update", nil)
		return
	}
	if err := patch.Validate(); err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	id := ctx.Param("id")
	if self, _ := middlewares.UserIDFromContext(ctx); self == id {
		if patch.Active != nil && !*patch.Active {
			RespondBadRequest(ctx, "You cannot deactivate your own account", nil)
			return
		}
		if patch.Role != nil && *patch.Role != user.RoleAdmin {
			RespondBadRequest(ctx, "You cannot remove your own admin role", nil)
			return
		}
	}

	if err := h.users.Update(ctx.Request.Context(), id, patch); err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	h.Get(ctx)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if self, _ := middlewares.UserIDFromContext(ctx); self == id {
		RespondBadRequest(ctx, "You cannot delete your own account", nil)
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), id); err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")
	if _, err := h.users.GetByID(ctx.Request.Context(), id); err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	if !h.admin.ResetPassword(ctx.Request.Context(), id, req.Password) {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	ctx.Status(http.StatusNoContent)
}
