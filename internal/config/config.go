// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno (MEMBERHUB_*). Los secretos (JWT,
// cookie de estado, client secrets) se leen una vez al arrancar y quedan
// inmutables por el resto del proceso.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Auth struct {
		// Rol con el que se crea un usuario en su primer login social.
		// "USER" (default) o "GUEST" según política de producto.
		SignupRole string `yaml:"signup_role"`

		JWT struct {
			Issuer    string `yaml:"issuer"`
			Secret    string `yaml:"secret"` // base64, >= 64 bytes decodificados
			AccessTTL string `yaml:"access_ttl"`
		} `yaml:"jwt"`

		StateCookie struct {
			Secret string `yaml:"secret"` // base64, 32 bytes decodificados
			Secure bool   `yaml:"secure"`
		} `yaml:"state_cookie"`

		AdminAPIKey string `yaml:"admin_api_key"`
	} `yaml:"auth"`

	// Frontend define las URLs del front que reciben los redirects post-login.
	// El host y puerto de SuccessURL es el único origin permitido: cualquier
	// redirect que no matchee exacto se aborta (defensa de open-redirect).
	Frontend struct {
		SuccessURL string `yaml:"success_url"` // recibe ?token=
		ErrorURL   string `yaml:"error_url"`   // recibe ?error=
	} `yaml:"frontend"`

	Providers struct {
		Kakao  Provider `yaml:"kakao"`
		Naver  Provider `yaml:"naver"`
		Google Provider `yaml:"google"`
	} `yaml:"providers"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// Provider es la configuración OAuth2 de un provider social.
type Provider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"` // si vacío => <jwt.issuer>/oauth2/callback/<name>
	Scopes       []string `yaml:"scopes"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.SignupRole == "" {
		c.Auth.SignupRole = "USER"
	}
	if c.Auth.JWT.AccessTTL == "" {
		c.Auth.JWT.AccessTTL = "30m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if len(c.Providers.Google.Scopes) == 0 {
		c.Providers.Google.Scopes = []string{"openid", "email", "profile"}
	}
	if len(c.Providers.Kakao.Scopes) == 0 {
		c.Providers.Kakao.Scopes = []string{"account_email", "profile_nickname", "profile_image"}
	}

	// validate string durations
	for _, d := range []string{c.Auth.JWT.AccessTTL, c.Rate.Login.Window, c.Cache.Memory.DefaultTTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: duración inválida %q: %w", d, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	// Redirect URLs autogeneradas desde el issuer si faltan
	base := strings.TrimRight(c.Auth.JWT.Issuer, "/")
	for name, p := range map[string]*Provider{
		"kakao":  &c.Providers.Kakao,
		"naver":  &c.Providers.Naver,
		"google": &c.Providers.Google,
	} {
		if p.Enabled && strings.TrimSpace(p.RedirectURL) == "" && base != "" {
			p.RedirectURL = base + "/oauth2/callback/" + name
		}
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// AccessTTL parsea la duración ya validada.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.JWT.AccessTTL)
	return d
}

// LoginRateWindow parsea la ventana de rate limit de login.
func (c *Config) LoginRateWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Login.Window)
	return d
}

// Validate chequea los invariantes mínimos para poder arrancar.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		return fmt.Errorf("config: auth.jwt.secret requerido")
	}
	if strings.TrimSpace(c.Auth.StateCookie.Secret) == "" {
		return fmt.Errorf("config: auth.state_cookie.secret requerido")
	}
	if strings.TrimSpace(c.Frontend.SuccessURL) == "" || strings.TrimSpace(c.Frontend.ErrorURL) == "" {
		return fmt.Errorf("config: frontend.success_url y frontend.error_url requeridos")
	}
	for _, u := range []string{c.Frontend.SuccessURL, c.Frontend.ErrorURL} {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: URL de frontend inválida: %q", u)
		}
	}
	if r := strings.ToUpper(c.Auth.SignupRole); r != "USER" && r != "GUEST" {
		return fmt.Errorf("config: auth.signup_role debe ser USER o GUEST, got %q", c.Auth.SignupRole)
	}
	// En prod la cookie de estado viaja sí o sí con Secure.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Auth.StateCookie.Secure = true
	}
	return nil
}

// applyEnvOverrides pisa campos sensibles con MEMBERHUB_* si están seteados.
// Los secretos suelen venir por env en deploys; el YAML queda para lo demás.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("MEMBERHUB_JWT_SECRET"); ok {
		c.Auth.JWT.Secret = v
	}
	if v, ok := getEnvStr("MEMBERHUB_STATE_COOKIE_SECRET"); ok {
		c.Auth.StateCookie.Secret = v
	}
	if v, ok := getEnvStr("MEMBERHUB_ADMIN_API_KEY"); ok {
		c.Auth.AdminAPIKey = v
	}
	if v, ok := getEnvStr("MEMBERHUB_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("MEMBERHUB_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("MEMBERHUB_KAKAO_CLIENT_SECRET"); ok {
		c.Providers.Kakao.ClientSecret = v
	}
	if v, ok := getEnvStr("MEMBERHUB_NAVER_CLIENT_SECRET"); ok {
		c.Providers.Naver.ClientSecret = v
	}
	if v, ok := getEnvStr("MEMBERHUB_GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("MEMBERHUB_SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvBool("MEMBERHUB_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
