package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func identity(sub, sid, iss, aud string, exp, iat time.Time) IdentityClaims {
	c := IdentityClaims{SID: sid, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    iss,
		ExpiresAt: gjwt.NewNumericDate(exp),
		IssuedAt:  gjwt.NewNumericDate(iat),
	}}
	if aud != "" {
		c.Audience = gjwt.ClaimStrings{aud}
	}
	return c
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, exp, err := m.Issue("traveler-1", "sess-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 || time.Until(exp) > time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "traveler-1" || claims.SID != "sess-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssueRequiresSubjectAndSession(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.Issue("", "s1"); err == nil {
		t.Fatal("expected empty subject to fail")
	}
	if _, _, err := m.Issue("u1", ""); err == nil {
		t.Fatal("expected empty session to fail")
	}
}

func TestParseRejectsMissingSessionID(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, identity("u1", "", "", "", now.Add(time.Minute), now))
	signed, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(signed); err == nil {
		t.Fatal("expected token without sid to be rejected")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, identity("u1", "s1", "", "", now.Add(time.Minute), now))
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "goguard",
		Audience:      "travel",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issued, _, err := m.Issue("u1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(issued); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	now := time.Now()
	sign := func(c IdentityClaims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return s
	}

	if _, err := m.Parse(sign(identity("u1", "s1", "other", "travel", now.Add(time.Minute), now))); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.Parse(sign(identity("u1", "s1", "goguard", "other", now.Add(time.Minute), now))); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.Parse(sign(identity("u1", "s1", "goguard", "travel", now.Add(-15*time.Second), now.Add(-time.Minute)))); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.Parse(sign(identity("u1", "s1", "goguard", "travel", now.Add(-2*time.Minute), now.Add(-3*time.Minute)))); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	claims := identity("u1", "s1", "", "", now.Add(time.Minute), now)

	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	tok2 := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok2.Header["kid"] = "k1"
	good, _ := tok2.SignedString(priv1)
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.Parse(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := []Config{
		{TTL: 0, SigningMethod: MethodEd25519, PublicKey: pub},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: "rs256", PublicKey: pub},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Leeway: 5 * time.Minute},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, KeyID: "k9", VerifyKeys: map[string][]byte{"k1": pub}},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func FuzzParseNoPanic(f *testing.F) {
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJIUzI1NiJ9.e30.sig")

	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		f.Fatalf("new manager: %v", err)
	}
	f.Fuzz(func(t *testing.T, token string) {
		_, _ = m.Parse(token)
	})
}
