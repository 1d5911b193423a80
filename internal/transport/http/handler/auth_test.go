package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/session"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/handler"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testKey    = "handler-test-secret-32-chars!!!!"
	testCookie = "auth_session"
	apiKey     = "shared-secret"
)

var user1 = domain.Identity{Username: "user1", DisplayName: "User One", Roles: []string{"USER"}}

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	authenticate       func(ctx context.Context, username, password string) (*domain.Identity, error)
	handoffDestination func(ctx context.Context, subject, returnURL string) string
	redeem             func(ctx context.Context, tok string) domain.Redemption
}

func (f *fakeAuthUsecase) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	return f.authenticate(ctx, username, password)
}

func (f *fakeAuthUsecase) HandoffDestination(ctx context.Context, subject, returnURL string) string {
	return f.handoffDestination(ctx, subject, returnURL)
}

func (f *fakeAuthUsecase) Redeem(ctx context.Context, tok string) domain.Redemption {
	return f.redeem(ctx, tok)
}

func newSessions() *session.Manager {
	return session.NewManager([]byte(testKey), testCookie, time.Hour)
}

func newTestEngine(uc *fakeAuthUsecase, m *session.Manager) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	demo := []handler.DemoAccount{{Username: "user1", Password: "password1", Roles: []string{"USER"}}}
	h := handler.NewAuthHandler(uc, m, false, demo, logger)

	r := gin.New()
	r.SetHTMLTemplate(handler.Templates())
	r.GET("/login", middleware.Session(m), h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/", middleware.RequireSession(m, "/login"), h.Home)
	r.POST("/logout", h.Logout)
	r.GET("/validate", middleware.APIKey(apiKey), h.Validate)
	return r
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func postLogin(r *gin.Engine, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- LoginPage ----

func TestLoginPage_RendersFormAndStoresRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login?redirect="+url.QueryEscape("http://localhost:8080/dashboard"), nil)
	newTestEngine(&fakeAuthUsecase{}, newSessions()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `action="/login"`) {
		t.Error("login form missing")
	}
	if !strings.Contains(w.Body.String(), "password1") {
		t.Error("demo accounts missing")
	}
	c := cookieNamed(w, handler.RedirectCookie)
	if c == nil {
		t.Fatal("redirect cookie not set")
	}
	if v, _ := url.QueryUnescape(c.Value); v != "http://localhost:8080/dashboard" {
		t.Errorf("redirect cookie = %q", c.Value)
	}
}

func TestLoginPage_ErrorFlag(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine(&fakeAuthUsecase{}, newSessions()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?error", nil))

	if !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Error("error message missing")
	}
}

func TestLoginPage_ExistingSession_HandsOffImmediately(t *testing.T) {
	m := newSessions()
	var gotSubject, gotReturn string
	uc := &fakeAuthUsecase{
		handoffDestination: func(_ context.Context, subject, returnURL string) string {
			gotSubject, gotReturn = subject, returnURL
			return returnURL + "?token=t"
		},
	}
	signed, _ := m.Sign(user1)

	req := httptest.NewRequest(http.MethodGet, "/login?redirect="+url.QueryEscape("http://localhost:8080/"), nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: signed})
	w := httptest.NewRecorder()
	newTestEngine(uc, m).ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if gotSubject != "user1" || gotReturn != "http://localhost:8080/" {
		t.Errorf("handoff(%q, %q)", gotSubject, gotReturn)
	}
	if loc := w.Header().Get("Location"); loc != "http://localhost:8080/?token=t" {
		t.Errorf("Location = %q", loc)
	}
}

// ---- Login ----

func TestLogin_MissingFields_RedirectsWithError(t *testing.T) {
	w := postLogin(newTestEngine(&fakeAuthUsecase{}, newSessions()), url.Values{"username": {"user1"}})

	if loc := w.Header().Get("Location"); w.Code != http.StatusFound || loc != "/login?error" {
		t.Errorf("got %d %q, want 302 /login?error", w.Code, loc)
	}
}

func TestLogin_BadCredentials_RedirectsWithError(t *testing.T) {
	uc := &fakeAuthUsecase{
		authenticate: func(context.Context, string, string) (*domain.Identity, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	w := postLogin(newTestEngine(uc, newSessions()), url.Values{"username": {"user1"}, "password": {"x"}})

	if loc := w.Header().Get("Location"); loc != "/login?error" {
		t.Errorf("Location = %q, want /login?error", loc)
	}
	if cookieNamed(w, testCookie) != nil {
		t.Error("session cookie set on failed login")
	}
}

func TestLogin_RepoError_RedirectsWithError(t *testing.T) {
	uc := &fakeAuthUsecase{
		authenticate: func(context.Context, string, string) (*domain.Identity, error) {
			return nil, errors.New("directory down")
		},
	}
	w := postLogin(newTestEngine(uc, newSessions()), url.Values{"username": {"user1"}, "password": {"x"}})

	if loc := w.Header().Get("Location"); loc != "/login?error" {
		t.Errorf("Location = %q, want /login?error", loc)
	}
}

func TestLogin_Success_UsesStoredRedirect(t *testing.T) {
	m := newSessions()
	var gotReturn string
	uc := &fakeAuthUsecase{
		authenticate: func(_ context.Context, username, password string) (*domain.Identity, error) {
			if username != "user1" || password != "password1" {
				t.Errorf("Authenticate(%q, %q)", username, password)
			}
			id := user1
			return &id, nil
		},
		handoffDestination: func(_ context.Context, _, returnURL string) string {
			gotReturn = returnURL
			return "http://localhost:8080/?token=abc"
		},
	}

	w := postLogin(newTestEngine(uc, m),
		url.Values{"username": {"user1"}, "password": {"password1"}},
		&http.Cookie{Name: handler.RedirectCookie, Value: "http://localhost:8080/"},
	)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://localhost:8080/?token=abc" {
		t.Errorf("Location = %q", loc)
	}
	if gotReturn != "http://localhost:8080/" {
		t.Errorf("return URL passed to usecase = %q", gotReturn)
	}

	sess := cookieNamed(w, testCookie)
	if sess == nil {
		t.Fatal("session cookie not set")
	}
	if id, err := m.Parse(sess.Value); err != nil || id.Username != "user1" {
		t.Errorf("session = %+v, %v", id, err)
	}
	if c := cookieNamed(w, handler.RedirectCookie); c == nil || c.MaxAge >= 0 {
		t.Error("redirect cookie not cleared")
	}
}

func TestLogin_Success_NoRedirectGoesToLanding(t *testing.T) {
	uc := &fakeAuthUsecase{
		authenticate: func(context.Context, string, string) (*domain.Identity, error) {
			id := user1
			return &id, nil
		},
		handoffDestination: func(_ context.Context, _, returnURL string) string {
			if returnURL != "" {
				t.Errorf("returnURL = %q, want empty", returnURL)
			}
			return "/"
		},
	}
	w := postLogin(newTestEngine(uc, newSessions()), url.Values{"username": {"user1"}, "password": {"password1"}})

	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

// ---- Home / Logout ----

func TestHome_RequiresSession(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine(&fakeAuthUsecase{}, newSessions()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if loc := w.Header().Get("Location"); w.Code != http.StatusFound || loc != "/login" {
		t.Errorf("got %d %q, want 302 /login", w.Code, loc)
	}
}

func TestHome_ShowsIdentity(t *testing.T) {
	m := newSessions()
	signed, _ := m.Sign(user1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: signed})
	w := httptest.NewRecorder()
	newTestEngine(&fakeAuthUsecase{}, m).ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "User One") {
		t.Errorf("got %d, body missing display name", w.Code)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine(&fakeAuthUsecase{}, newSessions()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if c := cookieNamed(w, testCookie); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie not cleared")
	}
}

// ---- Validate ----

func getValidate(r *gin.Engine, key, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/validate"+query, nil)
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidate_WithoutAPIKey_Returns401BeforeRedeeming(t *testing.T) {
	uc := &fakeAuthUsecase{
		redeem: func(context.Context, string) domain.Redemption {
			t.Error("Redeem called without API key")
			return domain.Redeemed(user1)
		},
	}
	w := getValidate(newTestEngine(uc, newSessions()), "", "?token=abc")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if strings.Contains(w.Body.String(), "valid") {
		t.Errorf("body leaks a business result: %s", w.Body.String())
	}
}

func TestValidate_Success(t *testing.T) {
	uc := &fakeAuthUsecase{
		redeem: func(_ context.Context, tok string) domain.Redemption {
			if tok != "abc" {
				t.Errorf("token = %q", tok)
			}
			return domain.Redeemed(user1)
		},
	}
	w := getValidate(newTestEngine(uc, newSessions()), apiKey, "?token=abc")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["valid"] != true || body["username"] != "user1" || body["displayName"] != "User One" {
		t.Errorf("body = %v", body)
	}
	if roles, _ := body["roles"].([]any); len(roles) != 1 || roles[0] != "USER" {
		t.Errorf("roles = %v", body["roles"])
	}
	if v, present := body["reason"]; !present || v != nil {
		t.Errorf("reason = %v (present %v), want null", v, present)
	}
}

func TestValidate_Failure_IsStill200(t *testing.T) {
	uc := &fakeAuthUsecase{
		redeem: func(context.Context, string) domain.Redemption {
			return domain.Rejected(domain.ReasonTokenAlreadyUsed)
		},
	}
	w := getValidate(newTestEngine(uc, newSessions()), apiKey, "?token=abc")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := `{"valid":false,"username":null,"displayName":null,"roles":null,"reason":"TOKEN_ALREADY_USED"}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestValidate_MissingToken_PassesEmptyToken(t *testing.T) {
	var seen *string
	uc := &fakeAuthUsecase{
		redeem: func(_ context.Context, tok string) domain.Redemption {
			seen = &tok
			return domain.Rejected(domain.ReasonTokenNotFound)
		},
	}
	w := getValidate(newTestEngine(uc, newSessions()), apiKey, "")

	if w.Code != http.StatusOK || seen == nil || *seen != "" {
		t.Errorf("status = %d, token seen = %v", w.Code, seen)
	}
}
