package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("password stored in the clear")
	}
	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("check correct password: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Fatalf("subject = %s, want %s", got, userID)
	}
}

func TestTokenVerifyRejections(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	userID := uuid.New()
	token, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", token + "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.Verify(tc.token); err == nil {
				t.Fatalf("token %q accepted", tc.token)
			}
		})
	}

	otherSecret := NewTokenIssuer("other", time.Hour)
	if _, err := otherSecret.Verify(token); err == nil {
		t.Fatalf("token signed with a different secret accepted")
	}

	// NewTokenIssuer refuses non-positive ttls, so build the expired
	// issuer directly.
	expired := &TokenIssuer{secret: []byte("secret"), ttl: -time.Minute}
	expiredToken, err := expired.Issue(userID)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := issuer.Verify(expiredToken); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	userID := uuid.New()
	token, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotID uuid.UUID
	var gotOK bool
	handler := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !gotOK || gotID != userID {
		t.Fatalf("context user = %s ok=%v, want %s", gotID, gotOK, userID)
	}

	for _, header := range []string{"", "Bearer bad-token", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestUserIDFromContext_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Fatalf("unexpected user id in bare context")
	}
}
