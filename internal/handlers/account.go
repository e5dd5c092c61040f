package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/services"
)

// AccountHandlers exposes sign-in and profile endpoints.
type AccountHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
}

// NewAccountHandlers constructs account endpoints. authn guards sign-out;
// the /me routes rely on the group middleware instead.
func NewAccountHandlers(authn *auth.Authenticator, accounts services.AccountService) *AccountHandlers {
	return &AccountHandlers{authn: authn, accounts: accounts}
}

// AuthRoutes wires the /auth endpoints.
func (h *AccountHandlers) AuthRoutes(r chi.Router) {
	r.Post("/sign-in", h.signIn)
	r.Post("/sign-in/google", h.signInWithGoogle)
	r.Get("/email-exists", h.emailExists)
	r.Group(func(r chi.Router) {
		if h.authn != nil {
			r.Use(h.authn.Require())
		}
		r.Post("/sign-out", h.signOut)
	})
}

// Routes wires the profile endpoints under /me.
func (h *AccountHandlers) Routes(r chi.Router) {
	r.Get("/profile", h.getProfile)
	r.Patch("/profile", h.updateProfile)
	r.Post("/password", h.changePassword)
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleSignInRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=120"`
	PhotoURL    *string `json:"photoURL" validate:"omitempty,url"`
	PhotoUpload string  `json:"photoUpload"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type sessionPayload struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	PhotoURL     string `json:"photoURL,omitempty"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type profilePayload struct {
	UID           string   `json:"uid"`
	Email         string   `json:"email"`
	DisplayName   string   `json:"displayName,omitempty"`
	PhotoURL      string   `json:"photoURL,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Providers     []string `json:"providers"`
}

func (h *AccountHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	res, err := h.accounts.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildSessionPayload(res))
}

func (h *AccountHandlers) signInWithGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	var req googleSignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	res, err := h.accounts.SignInWithGoogle(ctx, req.IDToken)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildSessionPayload(res))
}

func (h *AccountHandlers) signOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	if err := h.accounts.SignOut(ctx, identity.UID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandlers) emailExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := httpx.Validator().Var(email, "required,email"); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("validation_failed", "request validation failed").
			WithFields(map[string]string{"email": "must be a valid email address"}))
		return
	}
	exists, err := h.accounts.EmailExists(ctx, email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *AccountHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	profile, err := h.accounts.Profile(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProfilePayload(profile))
}

func (h *AccountHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := httpx.DecodeJSONLimit(r, &req, maxUploadBody); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if req.DisplayName == nil && req.PhotoURL == nil && strings.TrimSpace(req.PhotoUpload) == "" {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "no editable fields provided"))
		return
	}
	profile, err := h.accounts.UpdateProfile(ctx, identity.UID, services.UpdateProfileCommand{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		PhotoUpload: req.PhotoUpload,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProfilePayload(profile))
}

func (h *AccountHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if err := h.accounts.ChangePassword(ctx, identity.UID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildSessionPayload(res services.SignInResult) sessionPayload {
	return sessionPayload{
		UID:          res.UID,
		Email:        res.Email,
		DisplayName:  res.DisplayName,
		PhotoURL:     res.PhotoURL,
		IDToken:      res.IDToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int64(res.ExpiresIn.Seconds()),
	}
}

func buildProfilePayload(p services.UserProfile) profilePayload {
	providers := p.Providers
	if providers == nil {
		providers = []string{}
	}
	return profilePayload{
		UID:           p.UID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
		Providers:     providers,
	}
}
