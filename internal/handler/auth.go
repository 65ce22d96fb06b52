package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vidaplan/vidaplan/internal/config"
	"github.com/vidaplan/vidaplan/internal/ctxkeys"
	"github.com/vidaplan/vidaplan/internal/model"
	"github.com/vidaplan/vidaplan/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

type AuthHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	githubOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		githubOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/github/callback",
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decodeJSON(r.Body, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeJSON(r.Body, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		// One message for every failure mode, no credential oracle
		slog.Warn("login failed", "error", err, "email", req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	writeJSON(w, http.StatusOK, user)
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	err := decodeJSON(r.Body, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.authService.SendMagicLink(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, "please provide a valid email address")
			return
		}
		slog.Error("failed to send magic link", "error", err, "email", req.Email)
		writeError(w, http.StatusInternalServerError, "failed to send magic link")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	user, err := h.authService.VerifyMagicLink(token)
	if err != nil {
		slog.Warn("magic link verification failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid or expired magic link")
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	state := h.setOAuthStateCookie(w)
	url := h.googleOAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.validOAuthState(r) {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("google oauth exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	client := h.googleOAuthConfig.Client(r.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		slog.Warn("google userinfo request failed", "error", err)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	var userInfo struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil || userInfo.Email == "" {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	h.finishOAuth(w, r, userInfo.Email, userInfo.Name, "google")
}

func (h *AuthHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	state := h.setOAuthStateCookie(w)
	url := h.githubOAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	if !h.validOAuthState(r) {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	token, err := h.githubOAuthConfig.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("github oauth exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	email, name, err := h.githubPrimaryEmail(r.Context(), token)
	if err != nil {
		slog.Warn("github email lookup failed", "error", err)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	h.finishOAuth(w, r, email, name, "github")
}

// githubPrimaryEmail fetches the user's verified primary email; GitHub does not
// include it in the basic user payload when the profile email is private.
func (h *AuthHandler) githubPrimaryEmail(ctx context.Context, token *oauth2.Token) (string, string, error) {
	client := h.githubOAuthConfig.Client(ctx, token)

	userResp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return "", "", err
	}

	var user struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err = json.NewDecoder(userResp.Body).Decode(&user)
	_ = userResp.Body.Close()
	if err != nil {
		return "", "", err
	}

	if user.Email != "" {
		return user.Email, user.Name, nil
	}

	emailsResp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return "", "", err
	}
	defer func() { _ = emailsResp.Body.Close() }()

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	err = json.NewDecoder(emailsResp.Body).Decode(&emails)
	if err != nil {
		return "", "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, user.Name, nil
		}
	}

	return "", "", errors.New("no verified primary email")
}

func (h *AuthHandler) finishOAuth(w http.ResponseWriter, r *http.Request, email, name, provider string) {
	user, err := h.authService.AuthenticateOAuth(email, name, provider)
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "provider", provider)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *model.User) error {
	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		return err
	}

	h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(7*24*time.Hour))
	return nil
}

func (h *AuthHandler) setOAuthStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	state := base64.RawURLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   600,
		SameSite: http.SameSiteLaxMode,
	})

	return state
}

func (h *AuthHandler) validOAuthState(r *http.Request) bool {
	cookie, err := r.Cookie("oauth_state")
	if err != nil {
		return false
	}
	return cookie.Value != "" && cookie.Value == r.URL.Query().Get("state")
}
