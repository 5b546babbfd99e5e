package authstate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/memberhub/internal/security/secretbox"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	key := make([]byte, secretbox.KeyLength)
	for i := range key {
		key[i] = byte(i * 3)
	}
	box, err := secretbox.New(key)
	require.NoError(t, err)
	return NewStore(box, false)
}

// requestWithCookies arma un request de callback con las cookies que el
// "browser" recibió en rec.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/oauth2/callback/kakao", nil)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge >= 0 {
			r.AddCookie(ck)
		}
	}
	return r
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	st, err := NewState("kakao", "https://front.example:3000/login/result")
	require.NoError(t, err)
	require.NotEmpty(t, st.Nonce)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, st))

	cks := rec.Result().Cookies()
	require.Len(t, cks, 1)
	require.Equal(t, CookieName, cks[0].Name)
	require.Equal(t, CookiePath, cks[0].Path)
	require.Equal(t, int(TTL.Seconds()), cks[0].MaxAge)
	require.True(t, cks[0].HttpOnly)

	got, ok := store.Load(requestWithCookies(rec))
	require.True(t, ok)
	require.Equal(t, st.Provider, got.Provider)
	require.Equal(t, st.ReturnTo, got.ReturnTo)
	require.Equal(t, st.Nonce, got.Nonce)
}

func TestLoad_AbsentCookieIsNone(t *testing.T) {
	store := newTestStore(t)

	// Callback sin cookie: login arranca de cero, sin error ni panic.
	r := httptest.NewRequest(http.MethodGet, "/oauth2/callback/kakao", nil)
	st, ok := store.Load(r)
	require.False(t, ok)
	require.Nil(t, st)
}

func TestLoad_CorruptCookieIsNone(t *testing.T) {
	store := newTestStore(t)

	for _, v := range []string{"garbage", "aaa|bbb", ""} {
		r := httptest.NewRequest(http.MethodGet, "/oauth2/callback/kakao", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: v})
		if _, ok := store.Load(r); ok {
			t.Fatalf("cookie corrupta %q no debería cargar", v)
		}
	}
}

func TestLoad_UnknownVersionIsNone(t *testing.T) {
	store := newTestStore(t)

	// Sellar a mano un payload con versión futura.
	raw, err := cbor.Marshal(&State{Version: 99, Provider: "kakao", Nonce: "n", CreatedAt: time.Now()})
	require.NoError(t, err)
	sealed, err := store.box.Seal(raw, aad())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/oauth2/callback/kakao", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: sealed})
	_, ok := store.Load(r)
	require.False(t, ok)
}

func TestLoad_ExpiredStateIsNone(t *testing.T) {
	store := newTestStore(t)

	raw, err := cbor.Marshal(&State{
		Version:   Version,
		Provider:  "naver",
		Nonce:     "n",
		CreatedAt: time.Now().Add(-TTL - time.Minute),
	})
	require.NoError(t, err)
	sealed, err := store.box.Seal(raw, aad())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/oauth2/callback/naver", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: sealed})
	_, ok := store.Load(r)
	require.False(t, ok)
}

func TestRemove_ConsumesAndDeletesEagerly(t *testing.T) {
	store := newTestStore(t)

	st, err := NewState("google", "")
	require.NoError(t, err)

	saveRec := httptest.NewRecorder()
	require.NoError(t, store.Save(saveRec, st))

	rec := httptest.NewRecorder()
	got, ok := store.Remove(rec, requestWithCookies(saveRec))
	require.True(t, ok)
	require.Equal(t, "google", got.Provider)

	// El consumo emite la cookie de borrado (MaxAge<0).
	cks := rec.Result().Cookies()
	require.Len(t, cks, 1)
	require.Equal(t, CookieName, cks[0].Name)
	require.Less(t, cks[0].MaxAge, 0)
}

func TestSaveNil_ClearsCookie(t *testing.T) {
	store := newTestStore(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, nil))

	cks := rec.Result().Cookies()
	require.Len(t, cks, 1)
	require.Less(t, cks[0].MaxAge, 0)
}
