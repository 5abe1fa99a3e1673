package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamideathless/books-shop/internal/audit"
	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
)

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Age      *int   `json:"age"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	if n := len(req.Username); n < 3 || n > 32 {
		validationError(w, r, "username must be 3..32 characters")
		return
	}
	if n := len(req.Password); n < 8 || n > 64 {
		validationError(w, r, "password must be 8..64 characters")
		return
	}
	if n := len(req.Name); n == 0 || n > 56 {
		validationError(w, r, "name must be 1..56 characters")
		return
	}
	if req.Age != nil && (*req.Age < 1 || *req.Age > 120) {
		validationError(w, r, "age must be 1..120")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	user, err := a.users.CreateUser(r.Context(), catalog.User{
		Username:     req.Username,
		Name:         req.Name,
		Age:          req.Age,
		Role:         catalog.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		validationError(w, r, err.Error())
		return
	}
	user, err := a.users.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		// Unknown username and wrong password are indistinguishable.
		if errors.Is(err, catalog.ErrNotFound) {
			handleDomainError(w, r, auth.ErrBadCredentials)
			return
		}
		handleDomainError(w, r, err)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		handleDomainError(w, r, auth.ErrBadCredentials)
		return
	}

	access, accessExp, err := a.tokens.IssueAccess(user.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	refresh, refreshExp, err := a.tokens.IssueRefresh(user.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.setAuthCookie(w, accessCookie, access, accessExp)
	a.setAuthCookie(w, refreshCookie, refresh, refreshExp)
	_ = audit.LogEvent(r.Context(), "user.login", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleDomainError(w, r, auth.ErrNotAuthenticated)
			return
		}
		token = req.RefreshToken
	}

	access, accessExp, err := a.tokens.Refresh(token)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.setAuthCookie(w, accessCookie, access, accessExp)
	_ = audit.LogEvent(r.Context(), "user.token_refreshed", nil)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken: access,
		TokenType:   "bearer",
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens stay valid until expiry; logout only drops the cookies.
	a.clearAuthCookie(w, accessCookie)
	a.clearAuthCookie(w, refreshCookie)
	_ = audit.LogEvent(r.Context(), "user.logout", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.ListUsers(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	p, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if p.ID != id && p.Role != string(catalog.RoleAdmin) {
		handleDomainError(w, r, auth.ErrForbidden)
		return
	}
	user, err := a.users.FindUser(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) setAuthCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// pathID parses a positive integer route parameter, reporting a validation
// failure otherwise.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		validationError(w, r, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
