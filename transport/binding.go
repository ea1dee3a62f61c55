package transport

import (
	"net/http"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/middleware"
)

// HeaderRefreshToken carries the refresh token for clients without cookies.
const HeaderRefreshToken = "X-Refresh-Token"

// DefaultPrefix is the path prefix of the authentication endpoints.
const DefaultPrefix = "/api/auth"

// CookieConfig controls the cookies tokens are delivered in.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	AccessPath  string
	// RefreshPath scopes the refresh cookie to the auth endpoints only.
	RefreshPath string
	Domain      string
	// Insecure drops the Secure attribute, for local development over plain
	// HTTP. Cookies are Secure unless it is set.
	Insecure    bool
	SameSite    http.SameSite
}

// DefaultCookieConfig returns HttpOnly, Secure, SameSite=Lax cookies named
// access_token and refresh_token.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		AccessName:  "access_token",
		RefreshName: "refresh_token",
		AccessPath:  "/",
		RefreshPath: DefaultPrefix,
		SameSite:    http.SameSiteLaxMode,
	}
}

// Binding moves tokens between [blogauth.TokenPair] values and HTTP messages.
type Binding struct {
	cfg CookieConfig
}

// NewBinding fills unset cookie fields from [DefaultCookieConfig].
func NewBinding(cfg CookieConfig) *Binding {
	def := DefaultCookieConfig()
	if cfg.AccessName == "" {
		cfg.AccessName = def.AccessName
	}
	if cfg.RefreshName == "" {
		cfg.RefreshName = def.RefreshName
	}
	if cfg.AccessPath == "" {
		cfg.AccessPath = def.AccessPath
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = def.RefreshPath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	return &Binding{cfg: cfg}
}

// AccessToken reads the access cookie, falling back to a bearer header.
func (b *Binding) AccessToken(r *http.Request) string {
	if c, err := r.Cookie(b.cfg.AccessName); err == nil && c.Value != "" {
		return c.Value
	}
	return middleware.FromAuthorizationHeader(r)
}

// RefreshToken reads the refresh cookie, falling back to X-Refresh-Token.
func (b *Binding) RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(b.cfg.RefreshName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(HeaderRefreshToken)
}

// SetSession writes pair as cookies whose Max-Age matches each token's
// remaining lifetime. A pair without a refresh token clears any stale
// refresh cookie.
func (b *Binding) SetSession(w http.ResponseWriter, pair *blogauth.TokenPair, now time.Time) {
	http.SetCookie(w, b.cookie(b.cfg.AccessName, b.cfg.AccessPath, pair.AccessToken, maxAge(pair.AccessExpiresAt, now)))
	if pair.HasRefresh() {
		http.SetCookie(w, b.cookie(b.cfg.RefreshName, b.cfg.RefreshPath, pair.RefreshToken, maxAge(pair.RefreshExpiresAt, now)))
		return
	}
	http.SetCookie(w, b.cookie(b.cfg.RefreshName, b.cfg.RefreshPath, "", -1))
}

// Clear expires both cookies.
func (b *Binding) Clear(w http.ResponseWriter) {
	http.SetCookie(w, b.cookie(b.cfg.AccessName, b.cfg.AccessPath, "", -1))
	http.SetCookie(w, b.cookie(b.cfg.RefreshName, b.cfg.RefreshPath, "", -1))
}

func (b *Binding) cookie(name, path, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   b.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !b.cfg.Insecure,
		SameSite: b.cfg.SameSite,
	}
}

func maxAge(exp, now time.Time) int {
	secs := int(exp.Sub(now) / time.Second)
	if secs < 1 {
		return -1
	}
	return secs
}
