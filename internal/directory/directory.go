// Package directory es el UserDirectory del sistema: el registro persistente
// de usuarios locales, keyed por (provider, provider_subject_id). Expone el
// resolver find-or-create que consume el flujo de login social.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

var (
	// ErrNotFound: no existe usuario con ese id.
	ErrNotFound = errors.New("directory: user not found")
	// ErrWithdrawn: la identidad corresponde a una cuenta dada de baja
	// (soft-deleted). El login se rechaza; la fila no se reusa.
	ErrWithdrawn = errors.New("directory: account withdrawn")
	// ErrDuplicateEmail: el email del primer-login ya pertenece a una cuenta
	// activa de otra identidad (otro provider). El alta se rechaza.
	ErrDuplicateEmail = errors.New("directory: email already registered")
)

// User es el registro persistente de una cuenta local.
//
// Invariantes:
//   - (Provider, SubjectID) es único e inmutable después de crear.
//   - Email es único cuando está presente.
//   - Role sólo avanza por la máquina de estados de membership, salvo
//     override administrativo explícito.
//   - La baja es soft (DeletedAt): otras tablas referencian al usuario.
type User struct {
	ID          string
	Provider    string
	SubjectID   string
	Email       string // puede ser vacío (scope negado en el provider)
	DisplayName string
	AvatarURL   string
	Phone       string
	BirthDate   string // YYYY-MM-DD, vacío hasta el onboarding
	Gender      string
	Role        identity.Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Onboarding son los datos que el usuario completa al activar la cuenta.
// Nickname vacío conserva el display name que vino del provider.
type Onboarding struct {
	Nickname  string
	Phone     string
	BirthDate string
	Gender    string
}

// Store es la interfaz de persistencia del directorio.
type Store interface {
	// Resolve busca por (provider, subject id); si no existe crea el usuario
	// con signupRole; si existe refresca display name y avatar ("latest
	// wins" desde el provider) sin tocar el rol. created indica alta nueva.
	//
	// Atómico por (provider, subject id) bajo logins concurrentes: dos
	// primeros-logins simultáneos de la misma identidad externa no pueden
	// crear dos usuarios. La implementación pg lo garantiza con el unique
	// constraint de la tabla + retry-on-conflict, no con locks de app
	// (los requests pueden venir de procesos distintos).
	Resolve(ctx context.Context, ci identity.CanonicalIdentity, signupRole identity.Role) (u *User, created bool, err error)

	// FindByID busca por id. ErrNotFound si no existe o está dado de baja.
	FindByID(ctx context.Context, id string) (*User, error)

	// SaveOnboarding persiste los datos de activación sobre el usuario.
	// Re-submits pisan los valores anteriores. ErrNotFound si no existe.
	SaveOnboarding(ctx context.Context, id string, ob Onboarding) error

	// SoftDelete marca la cuenta como retirada. Idempotente.
	SoftDelete(ctx context.Context, id string) error

	// List devuelve usuarios activos, más nuevos primero.
	List(ctx context.Context, limit, offset int) ([]User, error)
}
