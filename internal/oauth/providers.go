package oauth

import (
	"golang.org/x/oauth2"
)

// Endpoints reales de cada provider. Kakao y naver no vienen con endpoints
// predefinidos en x/oauth2, así que los declaramos acá.
var (
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:  "https://kauth.kakao.com/oauth/authorize",
		TokenURL: "https://kauth.kakao.com/oauth/token",
	}
	naverEndpoint = oauth2.Endpoint{
		AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
		TokenURL: "https://nid.naver.com/oauth2.0/token",
	}
	googleEndpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}
)

// NewKakao arma el cliente de kakao. El id del sujeto viene top-level como
// "id" numérico; email y perfil cuelgan de "kakao_account" según los scopes
// que el usuario haya concedido.
func NewKakao(cfg Config) Client {
	return newClient("kakao", cfg, kakaoEndpoint, "https://kapi.kakao.com/v2/user/me", "id")
}

// NewNaver arma el cliente de naver. Todo el perfil viene envuelto bajo la
// clave "response"; el id del sujeto es "response.id".
func NewNaver(cfg Config) Client {
	return newClient("naver", cfg, naverEndpoint, "https://openapi.naver.com/v1/nid/me", "response")
}

// NewGoogle arma el cliente de google (OIDC userinfo plano, sujeto en "sub").
func NewGoogle(cfg Config) Client {
	return newClient("google", cfg, googleEndpoint, "https://openidconnect.googleapis.com/v1/userinfo", "sub")
}

// Registry indexa los clientes configurados por nombre.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// Lookup devuelve el cliente del provider, o (nil, false) si no está
// configurado.
func (r *Registry) Lookup(name string) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// Names lista los providers configurados.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.clients))
	for name := range r.clients {
		out = append(out, name)
	}
	return out
}
