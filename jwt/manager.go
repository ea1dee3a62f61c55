package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm used for every issued token.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// DefaultClockSkew is the tolerance applied to the exp claim when none is configured.
const DefaultClockSkew = 5 * time.Second

const maxClockSkew = time.Minute

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks short-lived tokens that authorize ordinary requests.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived tokens that may only be exchanged for a new pair.
	KindRefresh Kind = "refresh"
)

func (k Kind) valid() bool {
	return k == KindAccess || k == KindRefresh
}

var (
	// ErrMalformed is returned when a token cannot be decoded or misses required claims.
	ErrMalformed = errors.New("token malformed")
	// ErrSignatureInvalid is returned when the signature, algorithm or key id does not verify.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is returned when exp lies in the past beyond the clock-skew tolerance.
	ErrExpired = errors.New("token expired")
)

// Config holds the codec settings. It is treated as immutable once passed to [NewManager].
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	ClockSkew     time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// Manager issues and verifies signed bearer tokens.
//
// Manager is safe for concurrent use.
type Manager struct {
	config Config
}

// Subject is the identity carried by a token.
type Subject struct {
	ID       string
	Username string
	Email    string
}

// Token is the decoded form of a signed bearer token.
type Token struct {
	Raw       string
	Kind      Kind
	ID        string
	Subject   Subject
	IssuedAt  time.Time
	ExpiresAt time.Time

	// PairID and PairExpiresAt reference the refresh token minted together with
	// an access token. Both are zero when no refresh token was issued.
	PairID        string
	PairExpiresAt time.Time
}

// Remaining reports how long the token stays valid after now. It never returns
// a negative duration.
func (t *Token) Remaining(now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Claims is the JWT payload layout.
type Claims struct {
	Kind     Kind             `json:"typ"`
	Username string           `json:"usr,omitempty"`
	Email    string           `json:"email,omitempty"`
	PairID   string           `json:"rid,omitempty"`
	PairExp  *jwt.NumericDate `json:"rex,omitempty"`
	jwt.RegisteredClaims
}

// IssueOption customizes a single issued token.
type IssueOption func(*Claims)

// WithPair records the refresh token minted alongside an access token.
func WithPair(refreshID string, refreshExpiresAt time.Time) IssueOption {
	return func(c *Claims) {
		c.PairID = refreshID
		c.PairExp = jwt.NewNumericDate(refreshExpiresAt)
	}
}

// NewManager validates cfg and returns a ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	if cfg.ClockSkew < 0 || cfg.ClockSkew > maxClockSkew {
		return nil, errors.New("invalid clock skew configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// Issue mints a signed token of the given kind for subject, valid for ttl.
// Every call generates a fresh token id.
func (m *Manager) Issue(subject Subject, kind Kind, ttl time.Duration, opts ...IssueOption) (*Token, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if subject.ID == "" {
		return nil, errors.New("token subject required")
	}

	now := m.config.Now()
	claims := Claims{
		Kind:     kind,
		Username: subject.Username,
		Email:    subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.ID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	for _, opt := range opts {
		opt(&claims)
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signKey, err := m.getSignKey()
	if err != nil {
		return nil, err
	}
	raw, err := token.SignedString(signKey)
	if err != nil {
		return nil, err
	}

	return claimsToToken(raw, &claims), nil
}

// Parse decodes raw, verifies its signature and then its expiry.
//
// The returned error wraps exactly one of [ErrMalformed], [ErrSignatureInvalid]
// or [ErrExpired].
func (m *Manager) Parse(raw string) (*Token, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithLeeway(m.config.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	claims := &Claims{}
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(raw, claims, m.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrMalformed
	}
	if !claims.Kind.valid() || claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.config.Now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrMalformed)
	}

	return claimsToToken(raw, claims), nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.keyBytesToVerifyKey(key)
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.getVerifyKey()
}

// classify maps library errors onto the three codec failures. Signature
// problems take precedence over claim problems because the library only
// validates claims once the signature checked out.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

func claimsToToken(raw string, c *Claims) *Token {
	t := &Token{
		Raw:  raw,
		Kind: c.Kind,
		ID:   c.ID,
		Subject: Subject{
			ID:       c.Subject,
			Username: c.Username,
			Email:    c.Email,
		},
		PairID: c.PairID,
	}
	if c.IssuedAt != nil {
		t.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		t.ExpiresAt = c.ExpiresAt.Time
	}
	if c.PairExp != nil {
		t.PairExpiresAt = c.PairExp.Time
	}
	return t
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 signing requires private key")
		}
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(key)
	default:
		return key, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
