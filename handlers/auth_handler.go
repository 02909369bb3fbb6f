package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/evo-faceit/arena-server/middleware"
	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/services"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	authService   services.AuthService
	userService   services.UserService
	loginStore    *services.TelegramLoginStore
	jwtSecret     []byte
	webAppBaseURL string
}

func NewAuthHandler(
	authService services.AuthService,
	userService services.UserService,
	loginStore *services.TelegramLoginStore,
	jwtSecret string,
	webAppBaseURL string,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		loginStore:    loginStore,
		jwtSecret:     []byte(jwtSecret),
		webAppBaseURL: webAppBaseURL,
	}
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"name":    user.Nickname,
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// Register обрабатывает POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Nickname == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email, nickname, and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tokenString, err := h.issueToken(user)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"user":  user,
		"token": tokenString,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := readJSON(w, r, &creds); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), creds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tokenString, err := h.issueToken(user)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"user":  user,
		"token": tokenString,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Logout обрабатывает POST /api/auth/logout. Токены stateless, клиент
// просто выбрасывает свой.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetProfile обрабатывает GET /api/auth/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateProfile обрабатывает PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TelegramAuth обрабатывает POST /api/auth/telegram: вход по Telegram ID
// (используется ботом после подтверждения аккаунта).
func (h *AuthHandler) TelegramAuth(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TelegramID string `json:"telegram_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TelegramID == "" {
		badRequestResponse(w, r, errors.New("telegram_id is required"))
		return
	}

	user, err := h.authService.AuthenticateTelegram(r.Context(), input.TelegramID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tokenString, err := h.issueToken(user)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"user":  user,
		"token": tokenString,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TelegramLoginRedirect обрабатывает GET /telegram-login/{token}:
// одноразовый токен из бота обменивается на JWT, пользователь
// перенаправляется на фронтенд.
func (h *AuthHandler) TelegramLoginRedirect(w http.ResponseWriter, r *http.Request) {
	token, err := getIDFromURL(r, "token")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	telegramID, err := h.loginStore.Consume(token)
	if err != nil {
		badRequestResponse(w, r, errors.New("login link is invalid or expired, request a new one via /login in Telegram"))
		return
	}

	user, err := h.authService.AuthenticateTelegram(r.Context(), telegramID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tokenString, err := h.issueToken(user)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s/telegram-auth?token=%s", h.webAppBaseURL, tokenString), http.StatusFound)
}
