package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRouter(s *Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(s.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, SessionFromGin(c))
	})
	return r
}

func TestMiddlewareStartsSessionWithCookie(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	r := newRouter(s)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	id, err := s.Verify(cookies[0].Value)
	if err != nil {
		t.Fatalf("issued token must verify: %v", err)
	}
	if rec.Body.String() != id {
		t.Fatalf("expected session %q in context, got %q", id, rec.Body.String())
	}

	// The cookie keeps the same session.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != id {
		t.Fatalf("expected same session, got %q", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no new cookie expected for a valid session")
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	token, err := s.Issue("cli-session")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newRouter(s).ServeHTTP(rec, req)

	if rec.Body.String() != "cli-session" {
		t.Fatalf("expected bearer session, got %q", rec.Body.String())
	}
}

func TestMiddlewareReplacesInvalidTokens(t *testing.T) {
	issuer := NewSessions("other-secret", time.Hour, false)
	foreign, _ := issuer.Issue("foreign")

	expired := NewSessions("secret", time.Minute, false)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.Issue("stale")

	s := NewSessions("secret", time.Hour, false)
	for name, token := range map[string]string{"wrong secret": foreign, "expired": stale, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
			rec := httptest.NewRecorder()
			newRouter(s).ServeHTTP(rec, req)

			body := rec.Body.String()
			if body == "" || body == "foreign" || body == "stale" {
				t.Fatalf("expected a fresh session, got %q", body)
			}
			if len(rec.Result().Cookies()) != 1 {
				t.Fatal("expected a replacement cookie")
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := extractBearerToken("Basic abc"); err == nil {
		t.Fatal("expected error for non-bearer scheme")
	}
	if _, err := extractBearerToken("Bearer  "); err == nil {
		t.Fatal("expected error for missing token")
	}
	if token, err := extractBearerToken("bearer abc"); err != nil || token != "abc" {
		t.Fatalf("unexpected result %q, %v", token, err)
	}
}
