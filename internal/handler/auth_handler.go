package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/store"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
}

func (r *loginRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func byEmail(email string) func(model.User) bool {
	return func(u model.User) bool { return u.Email == email }
}

// Register creates an account and returns a token for it
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()
	prometheus.RegisterCounter.Inc()

	var req registerRequest
	if ok, err := bind(c, &req); !ok {
		prometheus.RecordAuthError("invalid_request")
		return err
	}
	email := req.Email

	_, exists, err := h.stores.Users.Find(ctx, byEmail(email))
	if err != nil {
		return internalError(c, "Registration failed", err)
	}
	if exists {
		log.Info("Email already registered", zap.String("email", email))
		prometheus.RecordAuthError("email_already_exists")
		return errorJSON(c, http.StatusConflict, "Email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		prometheus.RecordAuthError("password_hash_failed")
		return internalError(c, "Registration failed", err)
	}

	now := h.now()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.stores.Users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			prometheus.RecordAuthError("email_already_exists")
			return errorJSON(c, http.StatusConflict, "Email already registered")
		}
		return internalError(c, "Registration failed", err)
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return internalError(c, "Registration failed", err)
	}

	log.Info("User registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: user.Public()})
}

// Login verifies credentials and issues a token
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()
	prometheus.LoginCounter.Inc()

	var req loginRequest
	if ok, err := bind(c, &req); !ok {
		prometheus.RecordAuthError("invalid_request")
		return err
	}
	email := req.Email

	user, found, err := h.stores.Users.Find(ctx, byEmail(email))
	if err != nil {
		return internalError(c, "Login failed", err)
	}
	if !found {
		log.Info("Login for unknown email", zap.String("email", email))
		prometheus.RecordAuthError("user_not_found")
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Info("Invalid password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return internalError(c, "Login failed", err)
	}

	log.Info("User logged in", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user.Public()})
}

// Me returns the authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	claims, _ := middleware.ClaimsFrom(c)

	user, found, err := h.stores.Users.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return internalError(c, "Failed to load profile", err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, "User not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user.Public()})
}
