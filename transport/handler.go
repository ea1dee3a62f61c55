package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/middleware"
)

const maxBodyBytes = 1 << 16

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// Options configures a [Handler].
type Options struct {
	Cookies CookieConfig
	// Prefix defaults to [DefaultPrefix].
	Prefix string
	// ExposeTokensInBody echoes raw tokens in JSON responses for clients that
	// cannot use cookies. Browsers should leave it off.
	ExposeTokensInBody bool
	Logger             *slog.Logger
	Now                func() time.Time
}

// Handler serves the authentication endpoints.
type Handler struct {
	engine  *blogauth.Engine
	binding *Binding
	opts    Options
	mux     *http.ServeMux
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type sessionResponse struct {
	User             blogauth.Identity `json:"user"`
	TokenType        string            `json:"token_type"`
	ExpiresIn        int64             `json:"expires_in"`
	RefreshExpiresIn int64             `json:"refresh_expires_in,omitempty"`
	AccessToken      string            `json:"access_token,omitempty"`
	RefreshToken     string            `json:"refresh_token,omitempty"`
}

// NewHandler wires the endpoints for engine.
func NewHandler(engine *blogauth.Engine, opts Options) *Handler {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Cookies.RefreshPath == "" {
		opts.Cookies.RefreshPath = opts.Prefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Handler{
		engine:  engine,
		binding: NewBinding(opts.Cookies),
		opts:    opts,
		mux:     http.NewServeMux(),
	}
	h.Register(h.mux)
	return h
}

// Binding returns the cookie/header binding, e.g. as a [middleware.TokenExtractor] source.
func (h *Handler) Binding() *Binding {
	return h.binding
}

// Register adds the endpoints to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	p := h.opts.Prefix
	mux.HandleFunc("POST "+p+"/login", h.login)
	mux.HandleFunc("POST "+p+"/refresh", h.refresh)
	mux.HandleFunc("POST "+p+"/logout", h.logout)
	mux.HandleFunc("GET "+p+"/me", h.me)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "username must be 3-20 characters of letters, digits, underscore or hyphen")
		return
	}

	pair, err := h.engine.Login(middleware.WithRequestMetadata(r), blogauth.LoginRequest{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSession(w, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.binding.RefreshToken(r)
	if raw == "" {
		middleware.Unauthorized(w)
		return
	}

	pair, err := h.engine.Refresh(middleware.WithRequestMetadata(r), raw)
	if err != nil {
		if errors.Is(err, blogauth.ErrRefreshReuse) || errors.Is(err, blogauth.ErrRefreshExpired) {
			h.binding.Clear(w)
		}
		h.fail(w, r, err)
		return
	}
	h.writeSession(w, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Logout(middleware.WithRequestMetadata(r), blogauth.LogoutRequest{
		AccessToken:  h.binding.AccessToken(r),
		RefreshToken: h.binding.RefreshToken(r),
	})
	if err != nil {
		h.opts.Logger.ErrorContext(r.Context(), "logout failed", slog.Any("error", err))
	}
	h.binding.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	raw := h.binding.AccessToken(r)
	if raw == "" {
		middleware.Unauthorized(w)
		return
	}
	id, err := h.engine.CurrentIdentity(middleware.WithRequestMetadata(r), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *Handler) writeSession(w http.ResponseWriter, pair *blogauth.TokenPair) {
	now := h.opts.Now()
	h.binding.SetSession(w, pair, now)

	resp := sessionResponse{
		User:      pair.Identity,
		TokenType: "bearer",
		ExpiresIn: int64(pair.AccessExpiresAt.Sub(now) / time.Second),
	}
	if pair.HasRefresh() {
		resp.RefreshExpiresIn = int64(pair.RefreshExpiresAt.Sub(now) / time.Second)
	}
	if h.opts.ExposeTokensInBody {
		resp.AccessToken = pair.AccessToken
		resp.RefreshToken = pair.RefreshToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps engine errors to responses. Authentication failures all look the
// same to the caller.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blogauth.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, blogauth.ErrEngineNotReady):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case isAuthError(err):
		middleware.Unauthorized(w)
	default:
		h.opts.Logger.ErrorContext(r.Context(), "auth request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isAuthError(err error) bool {
	for _, target := range []error{
		blogauth.ErrUnauthorized,
		blogauth.ErrInvalidCredentials,
		blogauth.ErrTokenMalformed,
		blogauth.ErrTokenSignatureInvalid,
		blogauth.ErrTokenExpired,
		blogauth.ErrTokenRevoked,
		blogauth.ErrRefreshInvalid,
		blogauth.ErrRefreshExpired,
		blogauth.ErrRefreshReuse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
