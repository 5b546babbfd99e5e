// Package oauth implementa los clientes OAuth 2.0 contra los providers
// sociales soportados (kakao, naver, google). Cada provider expone el mismo
// contrato: armar la URL de autorización, canjear el code y traer el perfil
// crudo tal como lo devuelve el provider. La normalización del perfil a una
// identidad canónica NO vive acá, vive en identity/normalize.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Client es el contrato común de los providers sociales.
type Client interface {
	// Name es el identificador del provider ("kakao", "naver", "google").
	Name() string

	// AuthCodeURL arma la URL del endpoint de autorización con el state dado.
	AuthCodeURL(state string) string

	// FetchIdentity canjea el authorization code y trae el perfil crudo.
	// attrs es el payload del user-info endpoint sin transformar; subjectKey
	// nombra la clave bajo la que el provider publica su identificador (o,
	// en el caso de payloads envueltos, la clave del sobre).
	FetchIdentity(ctx context.Context, code string) (attrs map[string]any, subjectKey string, err error)
}

// Config son las credenciales de un provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// client es la implementación compartida: sólo cambian endpoints y la forma
// del payload, que queda en manos del normalizador.
type client struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	subjectKey  string
	http        *http.Client
}

func newClient(name string, cfg Config, endpoint oauth2.Endpoint, userInfoURL, subjectKey string) *client {
	return &client{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		subjectKey:  subjectKey,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) Name() string { return c.name }

func (c *client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

func (c *client) FetchIdentity(ctx context.Context, code string) (map[string]any, string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oauth %s: exchange: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("oauth %s: user info: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("oauth %s: user info status %d: %s", c.name, resp.StatusCode, body)
	}

	var attrs map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&attrs); err != nil {
		return nil, "", fmt.Errorf("oauth %s: decode user info: %w", c.name, err)
	}
	return attrs, c.subjectKey, nil
}
