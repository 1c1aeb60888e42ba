package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/userdeck/userdeck/internal/auth"
	"github.com/userdeck/userdeck/internal/config"
	"github.com/userdeck/userdeck/internal/domain/user"
	"github.com/userdeck/userdeck/internal/http/middlewares"
	"github.com/userdeck/userdeck/internal/repo/postgres"
	"github.com/userdeck/userdeck/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName string, role user.Role, active bool) (user.User, error)
}

type RefreshTokenStore interface {
	StoreNew(ctx context.Context, row postgres.RefreshTokenRow) error
	Rotate(ctx context.Context, oldID, presentedHash string, newRow postgres.RefreshTokenRow) error
	RevokeByID(ctx context.Context, id string) error
}

type AuthHandler struct {
	users        UserReader
	userWriter   UserWriter
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	cfg          config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, refreshStore RefreshTokenStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		userWriter:   userWriter,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		cfg:          cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"omitempty,max=100"`
	LastName  string `json:"lastName" binding:"omitempty,max=100"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	// new accounts start as plain active users

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.FirstName, req.LastName, user.RoleUser, true)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	accessToken, ok := h.issueSession(ctx, cctx, u)

	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"token": accessToken,
		"user":  u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if !foundUser.Active {
		RespondUnAuthorized(ctx, "account_disabled", "This account has been deactivated.")
		return
	}

	accessToken, ok := h.issueSession(ctx, cctx, foundUser)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": accessToken,
		"user":  foundUser,
	})
}

// Me returns the user behind the presented access token.

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// token outlived the account
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists.")
			return
		}

		RespondInternal(ctx, "Could not load current user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(claims.UserID, claims.Email, claims.Role)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    claims.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), newRow)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrRefreshTokenExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, postgres.ErrRefreshTokenNotFound), errors.Is(err, postgres.ErrRefreshTokenInvalid):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		default:
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"token": accessToken,
	})
}

// Logout is best-effort: the cookie is always cleared, revocation failures
// are swallowed.

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	_ = h.refreshStore.RevokeByID(cctx, claims.JTI)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Helper functions

// issueSession stores a refresh token and sets the cookie; on failure it has
// already responded and returns ok=false.
func (h *AuthHandler) issueSession(ctx *gin.Context, cctx context.Context, u user.User) (string, bool) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, string(u.Role))

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return "", false
	}

	rawRefresh, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Email, string(u.Role))

	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return "", false
	}

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefresh),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.StoreNew(cctx, row)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return "", false
	}

	h.setRefreshCookie(ctx, rawRefresh, expiresAt)

	return accessToken, true
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
