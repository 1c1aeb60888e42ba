package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/userdeck/userdeck/internal/config"
	"github.com/userdeck/userdeck/internal/domain/user"
	"github.com/userdeck/userdeck/internal/http/middlewares"
	"github.com/userdeck/userdeck/internal/repo/postgres"
	"github.com/userdeck/userdeck/internal/security"
)

type DirectoryRepo interface {
	List(ctx context.Context, filter postgres.ListFilter, page, limit int) ([]user.User, int, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, patch user.Update) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type DirectoryCache interface {
	PageKey(ctx context.Context, role, active string, page, limit int) string
	GetPage(ctx context.Context, key string) ([]byte, bool)
	SetPage(ctx context.Context, key string, payload []byte)
	Invalidate(ctx context.Context)
}

type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

type UsersHandler struct {
	repo     DirectoryRepo
	cache    DirectoryCache
	sessions SessionRevoker
}

func NewUsersHandler(repo DirectoryRepo, cache DirectoryCache, sessions SessionRevoker) *UsersHandler {
	return &UsersHandler{
		repo:     repo,
		cache:    cache,
		sessions: sessions,
	}
}

type ListUsersResponse struct {
	Users []user.User `json:"users"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// GET /users?role=&active=&page=&limit=

func (h *UsersHandler) List(ctx *gin.Context) {
	roleStr := ctx.Query("role")

	var filter postgres.ListFilter

	if roleStr != "" {
		role := user.Role(roleStr)

		if !role.Valid() {
			RespondBadRequest(ctx, "invalid_query", "role must be one of admin, user, guest", nil)
			return
		}

		filter.Role = &role
	}

	activeStr := ctx.Query("active")

	switch activeStr {
	case "":
	case "true":
		v := true
		filter.Active = &v
	case "false":
		v := false
		filter.Active = &v
	default:
		RespondBadRequest(ctx, "invalid_query", "active must be true or false", nil)
		return
	}

	page := parseIntDefault(ctx.Query("page"), 1)

	if page < 1 {
		RespondBadRequest(ctx, "invalid_query", "page must be a positive integer", nil)
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "invalid_query", "limit must be between 1 and 100", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	var cacheKey string

	if h.cache != nil {
		cacheKey = h.cache.PageKey(cctx, roleStr, activeStr, page, limit)

		if body, ok := h.cache.GetPage(cctx, cacheKey); ok {
			RespondRawJSONWithETag(ctx, http.StatusOK, body)
			return
		}
	}

	users, total, err := h.repo.List(cctx, filter, page, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	resp := ListUsersResponse{
		Users: users,
		Total: total,
		Page:  page,
		Limit: limit,
	}

	body, err := json.Marshal(resp)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	if h.cache != nil {
		h.cache.SetPage(cctx, cacheKey, body)
	}

	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

// GET /users/:id

func (h *UsersHandler) GetByID(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,max=100"`
	Role      *string `json:"role" binding:"omitempty,oneof=admin user guest"`
	Active    *bool   `json:"active"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
}

// PATCH /users/:id

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patch := user.Update{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    req.Active,
	}

	if req.Role != nil {
		role := user.Role(*req.Role)
		patch.Role = &role
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		patch.Password = &hash
	}

	if patch.Empty() {
		RespondBadRequest(ctx, "empty_update", "No fields to update", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.Update(cctx, id, patch)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	// deactivation kills the user's live sessions
	if patch.Active != nil && !*patch.Active && h.sessions != nil {
		_ = h.sessions.RevokeAllForUser(cctx, id)
	}

	if h.cache != nil {
		h.cache.Invalidate(cctx)
	}

	ctx.JSON(http.StatusOK, u)
}

// DELETE /users/:id

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	if callerID, hasCaller := middlewares.UserIDFromContext(ctx); hasCaller && callerID == id {
		RespondConflict(ctx, "self_delete", "You cannot delete your own account.")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	if h.sessions != nil {
		_ = h.sessions.RevokeAllForUser(cctx, id)
	}

	if h.cache != nil {
		h.cache.Invalidate(cctx)
	}

	ctx.Status(http.StatusNoContent)
}

// helpers

func parseUserID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id < 1 {
		RespondBadRequest(ctx, "invalid_request", "user id must be a positive integer", nil)
		return 0, false
	}

	return id, true
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return -1
	}

	return n
}
