package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/nimbly/internal/limiter"
	"github.com/and161185/nimbly/internal/storage"
)

/************ fake backend ************/
type fakeBackend struct {
	t          *testing.T
	token      string
	receipts   atomic.Int32
	unauthNext atomic.Bool
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u1",
		"email": "jane@example.com",
		"type":  "session",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	fb := &fakeBackend{t: t, token: tok}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"password":"hunter22"`) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"user_id":"u1","email":"jane@example.com","session_token":"`+fb.token+`","auth_provider":"email"}`)
	})
	mux.HandleFunc("POST /api/auth/signup", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("signup must not reach the backend")
	})
	mux.HandleFunc("GET /api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"Invalid or expired magic link"}`)
			return
		}
		_, _ = io.WriteString(w, `{"user_id":"u1","email":"jane@example.com","session_token":"`+fb.token+`"}`)
	})
	mux.HandleFunc("POST /api/auth/request-magic-link", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"message":"Magic link sent to your email"}`)
	})
	mux.HandleFunc("GET /api/receipts", func(w http.ResponseWriter, r *http.Request) {
		fb.receipts.Add(1)
		if !fb.authorized(w, r) {
			return
		}
		_, _ = io.WriteString(w, `{"receipts":[{"receipt_id":"r1","store_name":"whole foods","purchase_date":"2026-01-05","total_amount":42.10,"parse_status":"success","upload_timestamp":"2026-01-05T10:00:00Z"}],"total":1,"limit":5,"offset":0}`)
	})
	mux.HandleFunc("GET /api/receipts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "r1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Receipt not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"receipt_id":"r1","store_name":"whole foods","purchase_date":"2026-01-05","total_amount":"42.10","parse_status":"success","upload_timestamp":"2026-01-05T10:00:00Z","line_items":[{"id":"l1","product_name":"Oat milk","quantity":2,"unit_price":3.5,"total_price":7}],"parse_error":null}`)
	})
	mux.HandleFunc("POST /api/receipts/upload", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = f.Close()
		_, _ = io.WriteString(w, `{"receipt_id":"r9","status":"processing","message":"ok"}`)
	})
	mux.HandleFunc("GET /api/insights", func(w http.ResponseWriter, r *http.Request) {
		if !fb.authorized(w, r) {
			return
		}
		_, _ = io.WriteString(w, `{"insights":[],"message":"Upload at least 3 receipts to see insights"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if fb.unauthNext.Swap(false) || r.Header.Get("Authorization") != "Bearer "+fb.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
		return false
	}
	return true
}

/************ helpers ************/
type env struct {
	backend *fakeBackend
	web     *httptest.Server
	store   *storage.Memory
}

func newEnv(t *testing.T, lim limiter.Limiter) *env {
	t.Helper()
	fb, api := newFakeBackend(t)
	store := storage.NewMemory()
	s, err := New(Config{
		APIURL:  api.URL,
		Store:   store,
		Limiter: lim,
		Log:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	web := httptest.NewServer(s.Handler())
	t.Cleanup(web.Close)
	return &env{backend: fb, web: web, store: store}
}

// browserClient keeps cookies and does not follow redirects.
func (e *env) browserClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func (e *env) signIn(t *testing.T, c *http.Client) {
	t.Helper()
	resp, _ := post(t, c, e.web.URL+"/auth/signin", url.Values{"email": {"jane@example.com"}, "password": {"hunter22"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

/************ tests ************/

func TestHealthz(t *testing.T) {
	e := newEnv(t, nil)
	resp, body := get(t, http.DefaultClient, e.web.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestGuard_RedirectsAnonymousBrowser(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	for _, p := range []string{"/dashboard", "/receipts", "/receipts/r1", "/receipts/upload", "/insights", "/profile"} {
		resp, _ := get(t, c, e.web.URL+p)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, p)
		assert.Equal(t, "/auth", resp.Header.Get("Location"), p)
	}
	assert.Zero(t, e.backend.receipts.Load(), "protected handlers must not run")
}

func TestSignInThenDashboard(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	resp, body := get(t, c, e.web.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Whole Foods")
	assert.Contains(t, body, "$42.10")
	assert.Contains(t, body, ", jane</h1>")
	assert.Contains(t, body, `<span class="avatar">JA</span>`)

	resp, _ = get(t, c, e.web.URL+"/auth")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	other := e.browserClient(t)
	resp, _ = get(t, other, e.web.URL+"/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "sessions are per browser")
}

func TestSignIn_WrongPasswordShowsBackendMessage(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	resp, body := post(t, c, e.web.URL+"/auth/signin", url.Values{"email": {"jane@example.com"}, "password": {"nope"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password")
	assert.Zero(t, e.store.Len())
}

func TestSignUp_ValidationNeverReachesBackend(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	resp, body := post(t, c, e.web.URL+"/auth/signup", url.Values{
		"email": {"jane@example.com"}, "password": {"short"}, "confirm": {"short"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Password must be at least 8 characters")
	assert.Contains(t, body, `value="jane@example.com"`)
}

func TestVerify_ErrorStaysOnPage(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	resp, body := get(t, c, e.web.URL+"/auth/verify?token=bad")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Contains(t, body, "Invalid or expired magic link")

	resp, _ = get(t, c, e.web.URL+"/auth/verify?token=good")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestMagicLinkRequest(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	resp, body := post(t, c, e.web.URL+"/auth/magic-link", url.Values{"email": {"jane@example.com"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Magic link sent to your email")
	assert.Zero(t, e.store.Len(), "requesting a link stores nothing")
}

func TestBackend401EvictsSession(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	e.backend.unauthNext.Store(true)
	resp, _ := get(t, c, e.web.URL+"/receipts")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))

	before := e.backend.receipts.Load()
	resp, _ = get(t, c, e.web.URL+"/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, before, e.backend.receipts.Load())
}

func TestReceiptDetailAndNotFound(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	resp, body := get(t, c, e.web.URL+"/receipts/r1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Oat milk")
	assert.Contains(t, body, "$7.00")
	assert.Contains(t, body, "$3.50")

	resp, body = get(t, c, e.web.URL+"/receipts/r404")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Receipt not found")
}

func TestInsightsEmptyMessage(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	resp, body := get(t, c, e.web.URL+"/insights")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Upload at least 3 receipts to see insights")
}

func TestUpload(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	send := func(name string, content []byte) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, _ = fw.Write(content)
		require.NoError(t, mw.Close())
		resp, err := c.Post(e.web.URL+"/receipts/upload", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	resp := send("receipt.png", []byte("\x89PNG\r\n\x1a\nrest"))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/receipts/r9", resp.Header.Get("Location"))

	resp = send("receipt.exe", []byte("MZ\x90\x00"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignOut(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)
	e.signIn(t, c)

	resp, _ := post(t, c, e.web.URL+"/auth/signout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))

	resp, _ = get(t, c, e.web.URL+"/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = post(t, c, e.web.URL+"/auth/signout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestThemeToggle(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	_, body := get(t, c, e.web.URL+"/auth")
	assert.Contains(t, body, `<html lang="en" class="light">`)

	resp, _ := post(t, c, e.web.URL+"/theme", url.Values{"next": {"/auth?mode=signup"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth?mode=signup", resp.Header.Get("Location"))

	_, body = get(t, c, e.web.URL+"/auth")
	assert.Contains(t, body, `<html lang="en" class="dark">`)

	resp, _ = post(t, c, e.web.URL+"/prefs/sidebar", url.Values{"next": {"//evil.example"}})
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestToggleRedirectStaysLocal(t *testing.T) {
	e := newEnv(t, nil)
	c := e.browserClient(t)

	resp, _ := post(t, c, e.web.URL+"/theme", url.Values{"next": {"/\t/evil.example"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestBackTo(t *testing.T) {
	cases := map[string]string{
		"/receipts?offset=20":  "/receipts?offset=20",
		"/auth?mode=signup":    "/auth?mode=signup",
		"":                     "/",
		"receipts":             "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"/\t/evil.example":     "/",
		"/\n/evil.example":     "/",
		"/\r/evil.example":     "/",
		"/\x00/evil.example":   "/",
		"https://evil.example": "/",
		"/%zz":                 "/",
	}
	for next, want := range cases {
		r := httptest.NewRequest(http.MethodPost, "/theme", strings.NewReader(url.Values{"next": {next}}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.Equal(t, want, backTo(r), "next=%q", next)
	}
}

func TestAuthRateLimit(t *testing.T) {
	e := newEnv(t, limiter.NewMemory(limiter.Config{Attempts: 1, Window: time.Hour}))
	c := e.browserClient(t)
	form := url.Values{"email": {"jane@example.com"}, "password": {"nope"}}

	resp, _ := post(t, c, e.web.URL+"/auth/signin", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, c, e.web.URL+"/auth/signin", form)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many attempts")
}

func TestAuthRateLimit_CookielessClientsShareAddressBudget(t *testing.T) {
	e := newEnv(t, limiter.NewMemory(limiter.Config{Attempts: 2, Window: time.Hour}))
	form := url.Values{"email": {"jane@example.com"}, "password": {"nope"}}

	// a fresh client per request never returns the session cookie
	for i := 0; i < 2; i++ {
		resp, _ := post(t, e.browserClient(t), e.web.URL+"/auth/signin", form)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "attempt %d", i)
	}
	resp, body := post(t, e.browserClient(t), e.web.URL+"/auth/signin", form)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many attempts")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("limiter store down")
}

func TestAuthRateLimit_FailsOpen(t *testing.T) {
	e := newEnv(t, failingLimiter{})
	resp, _ := post(t, e.browserClient(t), e.web.URL+"/auth/signin",
		url.Values{"email": {"jane@example.com"}, "password": {"hunter22"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientIP(r))
	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(r))
	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(r))
}

func TestNotFound(t *testing.T) {
	e := newEnv(t, nil)
	resp, body := get(t, e.browserClient(t), e.web.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestRecover(t *testing.T) {
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
