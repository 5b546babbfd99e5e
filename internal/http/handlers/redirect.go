package handlers

import (
	"fmt"
	"net/url"
	"strings"
)

// buildSuccessRedirect arma la URL final del login exitoso: el destino
// configurado del front-end más el token como query param. returnTo, si
// vino del cliente, sólo puede aportar el path (nunca esquema ni host).
// Antes de devolver, el host y el puerto del resultado se comparan exactos
// contra el origin configurado: cualquier diferencia es un intento de open
// redirect y la función falla. Fail-closed: acá no hay URL de fallback.
func buildSuccessRedirect(successURL, returnTo, rawToken string) (string, error) {
	allowed, err := url.Parse(successURL)
	if err != nil {
		return "", fmt.Errorf("redirect: success url inválida: %w", err)
	}
	if allowed.Host == "" {
		return "", fmt.Errorf("redirect: success url sin host")
	}

	target := *allowed
	if returnTo != "" {
		// sólo paths absolutos del mismo sitio; "//evil.com" parsea como
		// host relativo al esquema y queda excluido por el chequeo de abajo
		p, err := url.Parse(returnTo)
		if err != nil {
			return "", fmt.Errorf("redirect: return_to inválido: %w", err)
		}
		if p.IsAbs() || p.Host != "" || !strings.HasPrefix(p.Path, "/") {
			return "", fmt.Errorf("redirect: return_to %q fuera del sitio", returnTo)
		}
		target.Path = p.Path
	}

	q := target.Query()
	q.Set("token", rawToken)
	target.RawQuery = q.Encode()

	if err := validateOrigin(&target, allowed); err != nil {
		return "", err
	}
	return target.String(), nil
}

// validateOrigin compara host y puerto del destino contra el origin
// permitido. La comparación es por igualdad exacta, puerto incluido:
// front:3000 y front:3001 son origins distintos.
func validateOrigin(target, allowed *url.URL) error {
	if !strings.EqualFold(target.Hostname(), allowed.Hostname()) {
		return fmt.Errorf("redirect: host %q no coincide con el permitido %q",
			target.Hostname(), allowed.Hostname())
	}
	if effectivePort(target) != effectivePort(allowed) {
		return fmt.Errorf("redirect: puerto %q no coincide con el permitido %q",
			effectivePort(target), effectivePort(allowed))
	}
	return nil
}

// effectivePort resuelve el puerto implícito del esquema cuando la URL no
// lo trae explícito.
func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}
