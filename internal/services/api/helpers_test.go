package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"allowly/internal/domain/family"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// seedFamily populates one family: two parents and one child, password
// "secret" for everyone.
func seedFamily(t *testing.T, store *memStore) (parent, parent2, child *family.User) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, memFamilies{s: store}.Create(ctx, &family.Family{UID: "f1", Name: "Testers"}))

	users := memUsers{s: store}
	parent = &family.User{UID: "mom", Role: family.RoleParent, Name: "Mom", Email: "mom@example.com", FamilyUID: "f1"}
	parent2 = &family.User{UID: "dad", Role: family.RoleParent, Name: "Dad", FamilyUID: "f1"}
	child = &family.User{UID: "kid", Role: family.RoleChild, Name: "Kid", FamilyUID: "f1"}
	for _, u := range []*family.User{parent, parent2, child} {
		require.NoError(t, users.Create(ctx, u))
		hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, memPasswords{s: store}.Set(ctx, u.UID, string(hash)))
	}
	return parent, parent2, child
}

// sessionCookieFor mints a valid session cookie for a user.
func sessionCookieFor(t *testing.T, u *family.User) *http.Cookie {
	t.Helper()
	now := time.Now()
	claims := sessionClaims{
		FamilyUID: u.FamilyUID,
		Role:      string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: tok}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}
