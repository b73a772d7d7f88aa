package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyJWT(t *testing.T) {
	token, err := IssueToken("test-secret", "user-123", "admin", "ru", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}
	parsed, err := VerifyJWT("test-secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT() unexpected error: %v", err)
	}
	if parsed.Subject != "user-123" || parsed.Role != "admin" || parsed.Locale != "ru" || parsed.Issuer != TokenIssuer {
		t.Fatalf("VerifyJWT() returned %+v", parsed)
	}
}

func TestVerifyJWTInvalidSignature(t *testing.T) {
	token, err := IssueToken("secret-a", "user-123", "", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	if _, err := VerifyJWT("secret-b", token); err == nil {
		t.Fatalf("VerifyJWT() expected invalid signature error")
	}
}

func TestVerifyJWTExpired(t *testing.T) {
	token, err := IssueToken("secret", "user-123", "", "", -time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	if _, err := VerifyJWT("secret", token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("VerifyJWT() = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyJWTRejectsForeignTokens(t *testing.T) {
	foreign := func(claims TokenClaims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	valid := jwt.RegisteredClaims{Subject: "u1", Issuer: TokenIssuer, Audience: jwt.ClaimStrings{TokenAudience}, ExpiresAt: exp}

	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"issuer":    foreign(TokenClaims{RegisteredClaims: otherIssuer}, jwt.SigningMethodHS256, []byte("secret")),
		"no expiry": foreign(TokenClaims{RegisteredClaims: noExpiry}, jwt.SigningMethodHS256, []byte("secret")),
		"alg":       foreign(TokenClaims{RegisteredClaims: valid}, jwt.SigningMethodHS512, []byte("secret")),
		"none":      foreign(TokenClaims{RegisteredClaims: valid}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
	}
	for name, token := range cases {
		if _, err := VerifyJWT("secret", token); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
	if _, err := VerifyJWT("secret", foreign(TokenClaims{RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("secret"))); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	var gotUser, gotLocale string
	h := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotLocale = LocaleFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d", rr.Code)
	}

	token, _ := IssueToken("secret", "u1", "", "ru-RU", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || gotUser != "u1" || gotLocale != "ru" {
		t.Fatalf("status=%d user=%q locale=%q", rr.Code, gotUser, gotLocale)
	}
}
