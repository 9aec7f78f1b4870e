// Package api serves the auth gateway and platform endpoints consumed by the dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"hopper/internal/accounts"
	"hopper/internal/auth"
	applog "hopper/internal/log"
	"hopper/internal/tokens"
	"hopper/models"
)

const maxBodyBytes = 1 << 20

type claimsKey struct{}

// API bundles the dependencies of the REST handlers.
type API struct {
	db       *gorm.DB
	accounts *accounts.Service
	tokens   *tokens.Manager
	now      func() time.Time
}

func New(db *gorm.DB, accts *accounts.Service, tm *tokens.Manager) *API {
	return &API{db: db, accounts: accts, tokens: tm, now: time.Now}
}

// Router returns a mux with every /api route registered.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	a.Mount(r)
	return r
}

// Mount registers the API routes on r.
func (a *API) Mount(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/login", a.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/register", a.Register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", a.Logout).Methods(http.MethodPost)
	authRoutes.Handle("/me", a.requireBearer(http.HandlerFunc(a.Me))).Methods(http.MethodGet)

	api.Handle("/platforms", a.requireBearer(http.HandlerFunc(a.Platforms))).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Login handles POST /api/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginPayload
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UsernameOrEmail) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Username or email and password are required")
		return
	}

	applog.Info(r.Context(), "login attempt", "identifier", accounts.NormalizeIdentifier(req.UsernameOrEmail))
	user, err := a.accounts.Authenticate(r.Context(), req.UsernameOrEmail, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid username or password")
		return
	case errors.Is(err, accounts.ErrAccountLocked):
		writeError(w, r, http.StatusLocked, "Account is locked due to too many failed login attempts")
		return
	case errors.Is(err, accounts.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "Account is disabled")
		return
	default:
		applog.Error(r.Context(), "login failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Unable to log in right now")
		return
	}

	a.respondWithToken(w, r, http.StatusOK, user, req.RememberMe)
}

// Register handles POST /api/auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterPayload
	if !decode(w, r, &req) {
		return
	}

	user, err := a.accounts.Register(r.Context(), accounts.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var validation *accounts.ValidationError
		var duplicate *accounts.DuplicateError
		switch {
		case errors.As(err, &validation):
			writeError(w, r, http.StatusBadRequest, validation.Message)
		case errors.As(err, &duplicate):
			writeError(w, r, http.StatusConflict, "An account with that "+duplicate.Field+" already exists")
		default:
			applog.Error(r.Context(), "registration failed", "error", err)
			writeError(w, r, http.StatusInternalServerError, "Unable to create your account right now")
		}
		return
	}

	a.respondWithToken(w, r, http.StatusCreated, user, req.RememberMe)
}

// Me handles GET /api/auth/me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	user, err := a.accounts.Get(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "User no longer exists")
			return
		}
		applog.Error(r.Context(), "failed to load current user", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Unable to load the current user")
		return
	}
	if user.AccountLocked || !user.Enabled {
		writeError(w, r, http.StatusUnauthorized, "Account is not active")
		return
	}

	writeJSON(w, r, http.StatusOK, toProfile(user))
}

type logoutResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Logout handles POST /api/auth/logout. A valid bearer token is revoked; a missing or invalid one
// is not an error.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := bearerToken(r, a.tokens.TokenType()); ok {
		if claims, err := a.tokens.Verify(raw); err == nil {
			a.tokens.Revoke(claims)
			applog.Info(r.Context(), "user logged out", "user", claims.Subject)
		}
	}

	writeJSON(w, r, http.StatusOK, logoutResponse{
		Message:   "Logged out successfully",
		Timestamp: a.now().UTC(),
	})
}

// Platforms handles GET /api/platforms.
func (a *API) Platforms(w http.ResponseWriter, r *http.Request) {
	var records []models.Platform
	if err := a.db.WithContext(r.Context()).Order("name").Find(&records).Error; err != nil {
		applog.Error(r.Context(), "failed to list platforms", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Unable to load platforms")
		return
	}

	out := make([]auth.Platform, 0, len(records))
	for _, p := range records {
		out = append(out, auth.Platform{ID: p.ID.String(), Name: p.Name, PlatformType: p.PlatformType})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (a *API) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user models.User, rememberMe bool) {
	issued, err := a.tokens.Issue(user.ID.String(), user.Username, user.Roles.Strings(), rememberMe)
	if err != nil {
		applog.Error(r.Context(), "failed to issue token", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Unable to issue an access token")
		return
	}

	snapshot := toSnapshot(user)
	writeJSON(w, r, status, auth.AuthResponse{
		AccessToken:      issued.Token,
		RefreshToken:     nil,
		TokenType:        issued.TokenType,
		ExpiresIn:        int64(issued.ExpiresIn / time.Second),
		RefreshExpiresIn: 0,
		User:             &snapshot,
	})
}

func (a *API) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r, a.tokens.TokenType())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := a.tokens.Verify(raw)
		if err != nil {
			applog.Debug(r.Context(), "rejected bearer token", "error", err)
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(applog.With(ctx, "user", claims.Subject)))
	})
}

func claimsFrom(ctx context.Context) tokens.Claims {
	claims, _ := ctx.Value(claimsKey{}).(tokens.Claims)
	return claims
}

// bearerToken extracts the credential of an Authorization header using the given scheme.
func bearerToken(r *http.Request, scheme string) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	got, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(got, scheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func toSnapshot(u models.User) auth.UserSnapshot {
	snap := auth.UserSnapshot{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		Roles:         u.Roles.Strings(),
		Enabled:       u.Enabled,
		AccountLocked: u.AccountLocked,
	}
	if u.LastLogin != nil {
		snap.LastLogin = auth.Timestamp{Time: *u.LastLogin}
	}
	return snap
}

func toProfile(u models.User) auth.User {
	return auth.User{
		ID:                  u.ID.String(),
		Username:            u.Username,
		Email:               u.Email,
		Enabled:             u.Enabled,
		AccountLocked:       u.AccountLocked,
		FailedLoginAttempts: u.FailedLoginAttempts,
		Roles:               u.Roles.Strings(),
		CreatedAt:           auth.Timestamp{Time: u.CreatedAt},
		UpdatedAt:           auth.Timestamp{Time: u.UpdatedAt},
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		applog.Debug(r.Context(), "malformed request body", "error", err)
		writeError(w, r, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		applog.Error(r.Context(), "failed to encode response", "error", err)
	}
}
