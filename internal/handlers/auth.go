package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/repository"
)

var errRefreshRejected = errors.New("refresh token rejected")

// SessionDropper освобождает пользовательское состояние при выходе.
type SessionDropper interface {
	Drop(userID uuid.UUID)
}

type AuthHandler struct {
	Users        UserStore
	Tokens       TokenStore
	TokenManager *auth.TokenManager
	Sessions     SessionDropper
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users UserStore, tokens TokenStore, manager *auth.TokenManager, sessions SessionDropper) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		TokenManager: manager,
		Sessions:     sessions,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest используется и для обновления токенов, и для выхода.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

// Register регистрирует пользователя и выдает токены.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	passwordHash, err := auth.HashPassword(strings.TrimSpace(req.Password))
	if err != nil {
		return serverError(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.Users.Create(ctx, normalizeEmail(req.Email), passwordHash, normalizeName(req.Name))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "user already exists")
		}
		return serverError(c, err)
	}

	response, err := h.issueTokens(ctx, user, nil)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login проверяет email и пароль и выдает токены.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c, err)
	}

	if err := auth.ComparePassword(user.PasswordHash, strings.TrimSpace(req.Password)); err != nil {
		return unauthorized(c)
	}

	response, err := h.issueTokens(ctx, user, nil)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, response)
}

// Refresh меняет действующий refresh-токен на новую пару токенов.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	ctx := c.Request().Context()
	stored, err := h.verifyRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, errRefreshRejected) {
			return unauthorized(c)
		}
		return serverError(c, err)
	}

	user, err := h.Users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c, err)
	}

	response, err := h.issueTokens(ctx, user, &stored.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, response)
}

// Logout отзывает refresh-токен и сбрасывает сессию AI-подсказок.
// Повторный выход с тем же токеном тоже завершается 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}

	refreshID, err := claims.TokenID()
	if err != nil {
		return unauthorized(c)
	}

	if userID, err := claims.UserID(); err == nil && h.Sessions != nil {
		h.Sessions.Drop(userID)
	}

	if err := h.Tokens.Revoke(c.Request().Context(), refreshID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "user not found")
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

// verifyRefreshToken проверяет подпись, срок, владельца и хэш сохраненного токена.
func (h *AuthHandler) verifyRefreshToken(ctx context.Context, raw string) (models.RefreshToken, error) {
	claims, err := h.TokenManager.ParseRefreshToken(raw)
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}

	refreshID, err := claims.TokenID()
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}

	userID, err := claims.UserID()
	if err != nil {
		return models.RefreshToken{}, errRefreshRejected
	}

	stored, err := h.Tokens.GetByID(ctx, refreshID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.RefreshToken{}, errRefreshRejected
		}
		return models.RefreshToken{}, err
	}

	switch {
	case stored.RevokedAt != nil,
		time.Now().After(stored.ExpiresAt),
		stored.UserID != userID,
		!auth.CompareTokenHash(stored.TokenHash, raw):
		return models.RefreshToken{}, errRefreshRejected
	}

	return stored, nil
}

// issueTokens выпускает пару токенов. При replaces старый refresh-токен ротируется.
func (h *AuthHandler) issueTokens(ctx context.Context, user models.User, replaces *uuid.UUID) (AuthResponse, error) {
	refreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, refreshID)
	if err != nil {
		return AuthResponse{}, err
	}

	token := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}

	if replaces != nil {
		err = h.Tokens.Rotate(ctx, *replaces, token)
	} else {
		err = h.Tokens.Create(ctx, token)
	}
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	}, nil
}

// decodeRequest разбирает и проверяет тело запроса. При ошибке возвращает текст для 400.
func decodeRequest(c echo.Context, req interface{}) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid payload", false
	}
	if err := c.Validate(req); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
