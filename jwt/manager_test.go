package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, clock *fakeClock, secret []byte) *Manager {
	t.Helper()
	m, err := NewManager(Config{PrivateKey: secret, Issuer: "blogauth", Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	clock := newClock()
	m := newHSManager(t, clock, testSecret)
	subject := Subject{ID: "1", Username: "alice", Email: "alice@example.com"}

	tok, err := m.Issue(subject, KindAccess, 30*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := m.Parse(tok.Raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Kind != KindAccess || got.Subject != subject || got.ID != tok.ID {
		t.Fatalf("unexpected token %+v", got)
	}
	if !got.ExpiresAt.Equal(clock.now.Add(30 * time.Minute)) {
		t.Fatalf("unexpected exp %v", got.ExpiresAt)
	}
	if got.Remaining(clock.now) != 30*time.Minute {
		t.Fatalf("unexpected remaining %v", got.Remaining(clock.now))
	}
}

func TestIssueGeneratesUniqueIDs(t *testing.T) {
	m := newHSManager(t, newClock(), testSecret)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := m.Issue(Subject{ID: "1"}, KindRefresh, time.Hour)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[tok.ID]; dup {
			t.Fatalf("duplicate jti %s", tok.ID)
		}
		seen[tok.ID] = struct{}{}
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	m := newHSManager(t, newClock(), testSecret)
	if _, err := m.Issue(Subject{ID: "1"}, Kind("id"), time.Minute); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
	if _, err := m.Issue(Subject{ID: "1"}, KindAccess, 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := m.Issue(Subject{}, KindAccess, time.Minute); err == nil {
		t.Fatal("expected empty subject to fail")
	}
}

func TestWithPairRoundTrip(t *testing.T) {
	clock := newClock()
	m := newHSManager(t, clock, testSecret)
	rexp := clock.now.Add(7 * 24 * time.Hour)

	tok, err := m.Issue(Subject{ID: "1"}, KindAccess, time.Minute, WithPair("r-1", rexp))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := m.Parse(tok.Raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.PairID != "r-1" || !got.PairExpiresAt.Equal(rexp) {
		t.Fatalf("pair not preserved: %+v", got)
	}
}

func TestParseExpiryHonorsClockSkew(t *testing.T) {
	clock := newClock()
	m := newHSManager(t, clock, testSecret)

	tok, err := m.Issue(Subject{ID: "1"}, KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(time.Minute + 4*time.Second)
	if _, err := m.Parse(tok.Raw); err != nil {
		t.Fatalf("expected token inside skew to parse: %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := m.Parse(tok.Raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseSignatureCheckedBeforeExpiry(t *testing.T) {
	clock := newClock()
	m := newHSManager(t, clock, testSecret)
	forger := newHSManager(t, clock, []byte("another-secret-another-secret-xx"))

	forged, err := forger.Issue(Subject{ID: "1"}, KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(forged.Raw); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := m.Parse(forged.Raw); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected forged expired token to report signature, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "j1",
		Subject:   "1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(raw); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}

	none := "eyJhbGciOiJub25lIn0.eyJzdWIiOiIxIn0."
	if _, err := m.Parse(none); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected alg none to be rejected as signature failure, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	m := newHSManager(t, newClock(), testSecret)
	for _, raw := range []string{"", "   ", "not-a-token", "a.b.c", "a.b"} {
		if _, err := m.Parse(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestParseRejectsMissingClaims(t *testing.T) {
	clock := newClock()
	m := newHSManager(t, clock, testSecret)

	sign := func(c Claims) string {
		raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, c).SignedString(testSecret)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return raw
	}
	exp := gjwt.NewNumericDate(clock.now.Add(time.Minute))

	noKind := sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "1", Issuer: "blogauth", ExpiresAt: exp}})
	if _, err := m.Parse(noKind); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing typ: expected ErrMalformed, got %v", err)
	}
	noJTI := sign(Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "1", Issuer: "blogauth", ExpiresAt: exp}})
	if _, err := m.Parse(noJTI); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing jti: expected ErrMalformed, got %v", err)
	}
	noExp := sign(Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "1", Issuer: "blogauth"}})
	if _, err := m.Parse(noExp); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing exp: expected ErrMalformed, got %v", err)
	}
	wrongIssuer := sign(Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "1", Issuer: "other", ExpiresAt: exp}})
	if _, err := m.Parse(wrongIssuer); !errors.Is(err, ErrMalformed) {
		t.Fatalf("wrong issuer: expected ErrMalformed, got %v", err)
	}
}

func TestParseKeyRotation(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, priv2 := newEdKeys(t)

	oldIssuer, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv1, PublicKey: pub1, KeyID: "k1"})
	if err != nil {
		t.Fatalf("old issuer: %v", err)
	}
	rotated, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv2,
		KeyID:         "k2",
		VerifyKeys:    map[string][]byte{"k1": pub1, "k2": pub2},
	})
	if err != nil {
		t.Fatalf("rotated: %v", err)
	}

	old, err := oldIssuer.Issue(Subject{ID: "1"}, KindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := rotated.Parse(old.Raw); err != nil {
		t.Fatalf("expected token signed with retired key to verify: %v", err)
	}

	fresh, err := rotated.Issue(Subject{ID: "1"}, KindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := rotated.Parse(fresh.Raw); err != nil {
		t.Fatalf("parse fresh: %v", err)
	}
	if _, err := oldIssuer.Parse(fresh.Raw); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected unknown kid to fail signature, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing secret", Config{}, "private key"},
		{"negative skew", Config{PrivateKey: testSecret, ClockSkew: -time.Second}, "clock skew"},
		{"skew above bound", Config{PrivateKey: testSecret, ClockSkew: 2 * time.Minute}, "clock skew"},
		{"unknown method", Config{PrivateKey: testSecret, SigningMethod: "rs512"}, "unsupported"},
		{"ed25519 without public", Config{SigningMethod: MethodEd25519}, "public key"},
		{"kid outside set", Config{PrivateKey: testSecret, KeyID: "a", VerifyKeys: map[string][]byte{"b": testSecret}}, "KeyID"},
	}
	for _, tc := range cases {
		_, err := NewManager(tc.cfg)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}
