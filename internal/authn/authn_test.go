package authn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBearerTokenExtractsToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(r))
}

func TestBearerTokenMissingHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(r))
}

func TestBearerTokenMalformedScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc123")
	assert.Equal(t, "", BearerToken(r))
}

func TestContextRoundTrip(t *testing.T) {
	p := Principal{UserID: uuid.New(), Username: "alice"}
	ctx := IntoContext(context.Background(), p)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestFromContextAbsent(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestMiddlewareAttachesPrincipalOnValidToken(t *testing.T) {
	want := Principal{UserID: uuid.New(), Username: "alice"}
	lookup := func(ctx context.Context, token string) (Principal, bool) {
		if token == "valid-token" {
			return want, true
		}
		return Principal{}, false
	}

	var captured Principal
	var capturedOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, capturedOK = FromContext(r.Context())
	})

	handler := Middleware(lookup)(next)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer valid-token")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, capturedOK)
	assert.Equal(t, want, captured)
}

func TestMiddlewarePassesThroughOnInvalidToken(t *testing.T) {
	lookup := func(ctx context.Context, token string) (Principal, bool) {
		return Principal{}, false
	}

	called := false
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok = FromContext(r.Context())
	})

	handler := Middleware(lookup)(next)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, called)
	assert.False(t, ok)
}

func TestMiddlewarePassesThroughWithNoHeader(t *testing.T) {
	lookup := func(ctx context.Context, token string) (Principal, bool) {
		t.Fatal("lookup should not be called without a token")
		return Principal{}, false
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := Middleware(lookup)(next)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, called)
}
