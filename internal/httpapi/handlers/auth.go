package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"vodworks/internal/auth"
	"vodworks/internal/httpkit"
	"vodworks/internal/models"
	"vodworks/internal/repositories"
)

// Register creates a local account and returns a signed token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req models.RegisterRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Invalid data provided", nil)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if details := validateRegistration(req); len(details) > 0 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error("password hash failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			httpkit.WriteErr(w, 400, "USER_EXISTS", "User with this email or username already exists", nil)
			return
		}
		log.Error("user insert failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), user.ID)
	if err != nil {
		log.Error("token generation failed", "error", err, "user_id", user.ID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	log.Info("user registered", "user_id", user.ID)
	httpkit.WriteJSON(w, 201, models.AuthResponse{User: user.Response(), Token: token})
}

// Login exchanges email and password for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req models.LoginRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Invalid data provided", nil)
		return
	}

	user, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			httpkit.WriteErr(w, 401, "INVALID_CREDENTIALS", "Invalid credentials", nil)
			return
		}
		log.Error("user lookup failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		httpkit.WriteErr(w, 401, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		return
	}

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), user.ID)
	if err != nil {
		log.Error("token generation failed", "error", err, "user_id", user.ID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	log.Info("user logged in", "user_id", user.ID)
	httpkit.WriteJSON(w, 200, models.AuthResponse{User: user.Response(), Token: token})
}

// GoogleAuth signs a user in with a Google OAuth access token, creating the
// account on first sight of the email.
func (h *Handler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req models.GoogleAuthRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Invalid data provided", nil)
		return
	}

	info, err := auth.VerifyGoogleToken(ctx, req.Token)
	if err != nil {
		httpkit.WriteErr(w, 401, "INVALID_GOOGLE_TOKEN", "Invalid Google token", nil)
		return
	}

	user, err := h.users.GetByEmail(ctx, strings.ToLower(info.Email))
	if errors.Is(err, repositories.ErrUserNotFound) {
		user, err = h.createGoogleUser(r, info)
	}
	if err != nil {
		log.Error("google sign-in failed", "error", err, "email", info.Email)
		httpkit.WriteErr(w, 500, "AUTH_FAILED", "Authentication failed", nil)
		return
	}

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), user.ID)
	if err != nil {
		log.Error("token generation failed", "error", err, "user_id", user.ID)
		httpkit.WriteErr(w, 500, "AUTH_FAILED", "Authentication failed", nil)
		return
	}

	log.Info("user logged in via google", "user_id", user.ID)
	httpkit.WriteJSON(w, 200, models.AuthResponse{User: user.Response(), Token: token})
}

// createGoogleUser provisions an account for a verified Google identity. The
// random password keeps the local login path closed until the user sets one.
func (h *Handler) createGoogleUser(r *http.Request, info *auth.GoogleUserInfo) (*models.User, error) {
	password, err := auth.RandomPassword(32)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(info.Email),
		Username:     auth.UsernameFromEmail(info.Email),
		PasswordHash: hash,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout acknowledges the client discarding its token. Tokens are stateless,
// so there is nothing to revoke server-side.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	httpkit.WriteJSON(w, 200, map[string]any{"message": "Logged out successfully"})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			httpkit.WriteErr(w, 404, "USER_NOT_FOUND", "User not found", nil)
			return
		}
		log.Error("user lookup failed", "error", err, "user_id", userID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpkit.WriteJSON(w, 200, user.Response())
}

func validateRegistration(req models.RegisterRequest) map[string]any {
	details := map[string]any{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details["email"] = "must be a valid email address"
	}
	if n := len(req.Username); n < 3 || n > 50 {
		details["username"] = "must be between 3 and 50 characters"
	}
	if len(req.Password) < 6 {
		details["password"] = "must be at least 6 characters"
	}
	return details
}
