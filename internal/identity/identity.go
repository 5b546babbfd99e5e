// Package identity define los tipos canónicos de identidad que comparten
// el flujo de login social, el token JWT y los checks de autorización.
package identity

import "strings"

// Role es el nivel de confianza de un usuario local.
// La progresión normal es GUEST → USER → MEMBER. ADMIN se otorga fuera de
// banda (operador), nunca por una transición del flujo normal.
type Role string

const (
	RoleGuest  Role = "GUEST"
	RoleUser   Role = "USER"
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// rank ordena los roles para comparaciones de "al menos".
var rank = map[Role]int{
	RoleGuest:  0,
	RoleUser:   1,
	RoleMember: 2,
	RoleAdmin:  3,
}

// ParseRole normaliza un string a Role. Retorna ("", false) si no es un rol
// conocido. Los nombres de rol nunca contienen comas: el claim "roles" del
// JWT se serializa comma-joined y un rol con coma rompería el parseo.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := rank[r]; !ok {
		return "", false
	}
	return r, true
}

// AtLeast reporta si r tiene al menos el nivel de confianza de min.
func (r Role) AtLeast(min Role) bool {
	return rank[r] >= rank[min]
}

// String implementa fmt.Stringer.
func (r Role) String() string { return string(r) }

// CanonicalIdentity es la representación normalizada, agnóstica del provider,
// de una identidad externa recién logueada. Es efímera: se produce por intento
// de login, la consume una sola vez el resolver y no se persiste tal cual.
type CanonicalIdentity struct {
	Provider  string // "kakao" | "naver" | "google"
	SubjectID string // id del usuario en el provider, inmutable
	Email     string // puede venir vacío si el usuario negó el scope
	Name      string // display name, puede venir vacío
	AvatarURL string // puede venir vacío
}

// Principal es la identidad autenticada de un request, derivada de un token
// ya validado. No toca la base de datos: sólo lo que el token afirma.
type Principal struct {
	UserID string
	Email  string
	Roles  []Role
}

// HasRole reporta si el principal tiene exactamente el rol dado.
func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasAtLeast reporta si algún rol del principal alcanza el mínimo requerido.
func (p Principal) HasAtLeast(min Role) bool {
	for _, have := range p.Roles {
		if have.AtLeast(min) {
			return true
		}
	}
	return false
}

// RoleStrings devuelve los roles como strings (para claims y logs).
func RoleStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
