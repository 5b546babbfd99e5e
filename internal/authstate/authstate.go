// Package authstate guarda el estado del handshake OAuth2 (entre iniciar el
// login y el callback del provider) en una cookie cifrada del lado del
// cliente. No hay mapa server-side que sincronizar: el "session store" de la
// ventana de autorización vive entero en el browser, con TTL corto.
package authstate

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dropDatabas3/memberhub/internal/security/secretbox"
)

const (
	// CookieName es fijo; el valor es un blob opaco sellado.
	CookieName = "mh_auth_req"
	// CookiePath limita la cookie al prefijo de login.
	CookiePath = "/oauth2"
	// TTL de la cookie y del estado que transporta.
	TTL = 180 * time.Second

	// Version actual del payload. Se serializa dentro del blob para que un
	// deploy con formato nuevo no rompa logins en vuelo: un Version
	// desconocido se trata como "no había estado" y el login arranca de cero.
	Version = 1
)

// State es el estado efímero de un login en curso.
// Tags keyasint: payload CBOR compacto, la cookie tiene techo de 4KB.
type State struct {
	Version   int       `cbor:"1,keyasint"`
	Provider  string    `cbor:"2,keyasint"`
	ReturnTo  string    `cbor:"3,keyasint,omitempty"`
	Nonce     string    `cbor:"4,keyasint"`
	CreatedAt time.Time `cbor:"5,keyasint"`
}

// NewState arma un State fresco con nonce aleatorio para el provider dado.
func NewState(provider, returnTo string) (*State, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	return &State{
		Version:   Version,
		Provider:  provider,
		ReturnTo:  returnTo,
		Nonce:     nonce,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// randomNonce genera el valor "state" anti-CSRF del flujo OAuth2.
// 32 bytes = 256 bits de entropía.
func randomNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Store sella/abre el State en la cookie.
type Store struct {
	box    *secretbox.Box
	secure bool // Secure attr; apagable sólo en dev sin TLS
}

// NewStore crea un Store con el Box dado.
func NewStore(box *secretbox.Box, secure bool) *Store {
	return &Store{box: box, secure: secure}
}

// aad liga el blob a esta cookie y path: un blob sellado para otro contexto
// no abre acá aunque la clave sea la misma.
func aad() []byte { return []byte(CookieName + ":" + CookiePath) }

// Save serializa y sella el estado en la cookie. Save(w, nil) borra la
// cookie (flujos de cancel/retry).
func (s *Store) Save(w http.ResponseWriter, st *State) error {
	if st == nil {
		http.SetCookie(w, s.deletionCookie())
		return nil
	}
	raw, err := cbor.Marshal(st)
	if err != nil {
		return err
	}
	sealed, err := s.box.Seal(raw, aad())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sealed,
		Path:     CookiePath,
		MaxAge:   int(TTL.Seconds()),
		Expires:  time.Now().Add(TTL).UTC(),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load lee la cookie si está y la abre. Ausente, corrupta, vencida o de una
// versión desconocida ⇒ (nil, false), nunca error: un blob roto significa
// "no hay login previo" y fuerza un login fresco, no un hard failure.
func (s *Store) Load(r *http.Request) (*State, bool) {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return nil, false
	}
	raw, err := s.box.Open(ck.Value, aad())
	if err != nil {
		return nil, false
	}
	var st State
	if err := cbor.Unmarshal(raw, &st); err != nil {
		return nil, false
	}
	if st.Version != Version {
		return nil, false
	}
	// Cinturón además del MaxAge de la cookie: el TTL viaja dentro del blob.
	if time.Since(st.CreatedAt) > TTL {
		return nil, false
	}
	return &st, true
}

// Remove consume el estado: Load + borrado eager de la cookie. Sin el borrado
// la cookie viviría hasta su TTL (~180s) y un callback repetido podría
// reusar el mismo estado; acá se cierra esa ventana de replay.
func (s *Store) Remove(w http.ResponseWriter, r *http.Request) (*State, bool) {
	st, ok := s.Load(r)
	http.SetCookie(w, s.deletionCookie())
	return st, ok
}

func (s *Store) deletionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
