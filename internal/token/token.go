// Package token emite y valida los access tokens del gateway.
//
// El token es self-contained: firma HMAC-SHA-512 + expiry deciden la validez,
// sin round-trip a la base. La clave de firma es configuración inmutable de
// proceso, cargada una vez al arrancar y pasada por referencia al Issuer;
// no existe rotación en caliente.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// minKeyLen: HS512 quiere una clave del tamaño del hash (64 bytes).
const minKeyLen = 64

var (
	ErrBadSecret  = errors.New("token: secret inválido (base64 de al menos 64 bytes)")
	ErrNotParsed  = errors.New("token: claims ilegibles")
	errValidation = errors.New("token: inválido")
)

// Issuer firma y valida tokens con una clave simétrica fija.
// Stateless y thread-safe: ningún campo muta después de New.
type Issuer struct {
	key []byte
	iss string
	ttl time.Duration
}

// New construye el Issuer desde el secret en base64.
func New(secretB64, iss string, ttl time.Duration) (*Issuer, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secretB64))
	if err != nil {
		key, err = base64.RawStdEncoding.DecodeString(strings.TrimSpace(secretB64))
	}
	if err != nil || len(key) < minKeyLen {
		return nil, ErrBadSecret
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Issuer{key: key, iss: iss, ttl: ttl}, nil
}

// TTL expone la vida configurada del token.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue emite un token firmado para el usuario.
// Claims: sub (user id), email, roles (comma-joined), iss, iat, exp.
// Los nombres de rol no llevan comas (garantizado por identity.Role), así que
// el join/split es seguro.
func (i *Issuer) Issue(userID, email string, roles []identity.Role) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.ttl)

	claims := jwtv5.MapClaims{
		"iss":   i.iss,
		"sub":   userID,
		"email": email,
		"roles": strings.Join(identity.RoleStrings(roles), ","),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS512, claims)
	signed, err := tk.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, exp, nil
}

// Validate chequea firma, estructura, alg y expiry.
//
// Devuelve un booleano uniforme a propósito: la categoría del fallo
// (malformed vs firma vs expiry) se loguea a nivel info pero no se expone al
// caller, para no regalar un oráculo de por qué falló un token forjado.
func (i *Issuer) Validate(raw string) bool {
	_, err := i.parse(raw)
	if err != nil {
		logger.L().Info("token rechazado",
			logger.Op("token.validate"),
			logger.String("reason", failureCategory(err)),
		)
		return false
	}
	return true
}

// Parse extrae el Principal de un token YA validado. No llamar sin un
// Validate exitoso previo; igual re-verifica la firma (parsear claims de un
// token sin verificar sería peor que el double-parse).
func (i *Issuer) Parse(raw string) (identity.Principal, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return identity.Principal{}, ErrNotParsed
	}

	p := identity.Principal{}
	p.UserID, _ = claims["sub"].(string)
	p.Email, _ = claims["email"].(string)

	rolesStr, _ := claims["roles"].(string)
	for _, s := range strings.Split(rolesStr, ",") {
		if r, ok := identity.ParseRole(s); ok {
			p.Roles = append(p.Roles, r)
		}
	}
	if p.UserID == "" {
		return identity.Principal{}, ErrNotParsed
	}
	return p, nil
}

// parse hace el trabajo común de Validate/Parse.
func (i *Issuer) parse(raw string) (jwtv5.MapClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: vacío", errValidation)
	}

	tok, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return i.key, nil },
		jwtv5.WithValidMethods([]string{"HS512"}),
		jwtv5.WithIssuer(i.iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok || !tok.Valid {
		return nil, errValidation
	}
	return claims, nil
}

// failureCategory clasifica el error para el log (sólo para el log).
func failureCategory(err error) string {
	switch {
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwtv5.ErrTokenInvalidIssuer):
		return "bad_issuer"
	case errors.Is(err, jwtv5.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return "invalid"
	}
}
