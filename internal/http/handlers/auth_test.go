package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/memberhub/internal/authstate"
	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/http/handlers"
	"github.com/dropDatabas3/memberhub/internal/http/router"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/identity/normalize"
	"github.com/dropDatabas3/memberhub/internal/membership"
	"github.com/dropDatabas3/memberhub/internal/notify"
	"github.com/dropDatabas3/memberhub/internal/oauth"
	"github.com/dropDatabas3/memberhub/internal/security/secretbox"
	"github.com/dropDatabas3/memberhub/internal/token"
)

// fakeProvider emula un provider social con payload kakao-shaped.
type fakeProvider struct {
	attrs map[string]any
	fail  bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/auth?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) FetchIdentity(ctx context.Context, code string) (map[string]any, string, error) {
	if f.fail {
		return nil, "", context.DeadlineExceeded
	}
	return f.attrs, "id", nil
}

type env struct {
	handler http.Handler
	users   *directory.Memory
}

func newEnv(t *testing.T, provider oauth.Client) *env {
	t.Helper()

	box, err := secretbox.New(bytes.Repeat([]byte{7}, secretbox.KeyLength))
	require.NoError(t, err)

	secret := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 64))
	issuer, err := token.New(secret, "memberhub-test", time.Minute)
	require.NoError(t, err)

	users := directory.NewMemory()
	svc := membership.NewService(membership.NewMemory(users), users, users, notify.NewMemory())

	auth := &handlers.Auth{
		Providers:   oauth.NewRegistry(provider),
		States:      authstate.NewStore(box, false),
		Normalizers: normalize.NewRegistry(),
		Users:       users,
		Issuer:      issuer,
		SignupRole:  identity.RoleUser,
		SuccessURL:  "http://front.example.com:3000/auth/done",
		ErrorURL:    "http://front.example.com:3000/auth/error",
	}

	h := router.New(router.Deps{
		Auth:       auth,
		Users:      &handlers.Users{Directory: users, Membership: svc},
		Membership: &handlers.Membership{Service: svc},
		AdminUsers: &handlers.AdminUsers{Directory: users, Roles: users},
		Health:     &handlers.Health{},
		Issuer:     issuer,
	})
	return &env{handler: h, users: users}
}

func kakaoAttrs() map[string]any {
	return map[string]any{
		"id": float64(12345),
		"kakao_account": map[string]any{
			"email": "alice@example.com",
			"profile": map[string]any{
				"nickname":          "Alice",
				"profile_image_url": "https://img.example.com/a.png",
			},
		},
	}
}

// startLogin dispara el inicio del flujo y devuelve el nonce y la cookie
// del handshake.
func startLogin(t *testing.T, e *env, returnTo string) (nonce string, cookie *http.Cookie) {
	t.Helper()
	target := "/oauth2/authorize/fake"
	if returnTo != "" {
		target += "?return_to=" + url.QueryEscape(returnTo)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "provider.example", loc.Host)
	nonce = loc.Query().Get("state")
	require.NotEmpty(t, nonce)

	for _, c := range rec.Result().Cookies() {
		if c.Name == authstate.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "el inicio debe dejar la cookie del handshake")
	return nonce, cookie
}

func TestLoginFlowEndToEnd(t *testing.T) {
	e := newEnv(t, &fakeProvider{attrs: kakaoAttrs()})
	nonce, cookie := startLogin(t, e, "")

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state="+url.QueryEscape(nonce), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "front.example.com:3000", loc.Host)
	require.Equal(t, "/auth/done", loc.Path)

	raw := loc.Query().Get("token")
	require.NotEmpty(t, raw)

	// la cookie del handshake se consumió
	consumed := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == authstate.CookieName && c.MaxAge < 0 {
			consumed = true
		}
	}
	require.True(t, consumed)

	// el token emitido sirve contra la API
	meReq := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+raw)
	meRec := httptest.NewRecorder()
	e.handler.ServeHTTP(meRec, meReq)
	require.Equal(t, http.StatusOK, meRec.Code)
	require.Contains(t, meRec.Body.String(), `"provider":"fake"`)
	require.Contains(t, meRec.Body.String(), `"role":"USER"`)
}

func TestCallbackWithoutHandshakeCookie(t *testing.T) {
	e := newEnv(t, &fakeProvider{attrs: kakaoAttrs()})

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state=x", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/error", loc.Path)
	require.NotEmpty(t, loc.Query().Get("error"))
}

func TestCallbackStateMismatch(t *testing.T) {
	e := newEnv(t, &fakeProvider{attrs: kakaoAttrs()})
	_, cookie := startLogin(t, e, "")

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state=forjado", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/error", loc.Path)
	require.Empty(t, loc.Query().Get("token"))
}

func TestCallbackOpenRedirectAborted(t *testing.T) {
	e := newEnv(t, &fakeProvider{attrs: kakaoAttrs()})
	nonce, cookie := startLogin(t, e, "https://evil.example.com/steal")

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state="+url.QueryEscape(nonce), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	// fail-closed: nada de redirect, ni siquiera al error-page
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Location"))
}

func TestCallbackProviderFailure(t *testing.T) {
	e := newEnv(t, &fakeProvider{fail: true})
	nonce, cookie := startLogin(t, e, "")

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state="+url.QueryEscape(nonce), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/error", loc.Path)
	require.Empty(t, loc.Query().Get("token"))
}

func TestWithdrawnAccountCannotLogin(t *testing.T) {
	e := newEnv(t, &fakeProvider{attrs: kakaoAttrs()})

	// primer login crea la cuenta
	nonce, cookie := startLogin(t, e, "")
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state="+url.QueryEscape(nonce), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	users, err := e.users.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, e.users.SoftDelete(context.Background(), users[0].ID))

	// segundo login de la misma identidad externa rebota
	nonce, cookie = startLogin(t, e, "")
	req = httptest.NewRequest(http.MethodGet, "/oauth2/callback/fake?code=c&state="+url.QueryEscape(nonce), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/error", loc.Path)
}
