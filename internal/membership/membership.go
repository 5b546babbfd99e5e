// Package membership implementa la máquina de estados de roles del sitio:
// GUEST completa onboarding y pasa a USER; USER postula a miembro; un admin
// aprueba o rechaza. La aprobación es la única transición hacia MEMBER y es
// transaccional: solicitud, rol y perfil cambian juntos o no cambia nada.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/notify"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// ─────────────────────────────────────────────────────────────
// Estados de solicitud
// ─────────────────────────────────────────────────────────────

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

var (
	// ErrAlreadyApplied: el usuario ya tiene una solicitud PENDING.
	ErrAlreadyApplied = errors.New("membership: application already pending")
	// ErrNotEligible: el rol actual del usuario no permite la operación
	// (un GUEST no postula, un MEMBER no vuelve a postular).
	ErrNotEligible = errors.New("membership: role not eligible")
	// ErrApplicationNotFound: no existe solicitud con ese id.
	ErrApplicationNotFound = errors.New("membership: application not found")
	// ErrNotPending: la solicitud ya fue decidida; las decisiones no se
	// re-aplican ni se revierten por esta vía.
	ErrNotPending = errors.New("membership: application already decided")
	// ErrProfileNotFound: el usuario no tiene perfil de miembro.
	ErrProfileNotFound = errors.New("membership: member profile not found")
)

// Application es una postulación a miembro. Un usuario tiene a lo sumo una
// PENDING a la vez; el histórico de decididas se conserva.
type Application struct {
	ID         string
	UserID     string
	Motivation string
	Status     string
	Reason     string // nota de rechazo, vacía en otros estados
	CreatedAt  time.Time
	DecidedAt  *time.Time
	DecidedBy  string
}

// MemberProfile existe sólo para usuarios MEMBER; se crea en la misma
// transacción que aprueba la solicitud.
type MemberProfile struct {
	UserID   string
	Nickname string
	Bio      string
	JoinedAt time.Time
}

// OnboardingInput son los datos que completa un GUEST para activarse.
type OnboardingInput struct {
	Nickname      string
	Phone         string
	BirthDate     string // YYYY-MM-DD
	Gender        string
	AgreedToTerms bool
}

// Store persiste solicitudes y perfiles. Approve y Reject son atómicos:
// la implementación pg los ejecuta dentro de una transacción que también
// actualiza el rol del usuario.
type Store interface {
	CreateApplication(ctx context.Context, app *Application) error
	FindApplication(ctx context.Context, id string) (*Application, error)
	ListApplications(ctx context.Context, status string, limit, offset int) ([]Application, error)

	// Approve marca la solicitud APPROVED, sube el rol del usuario a MEMBER
	// y crea el perfil, todo o nada. ErrNotPending si ya estaba decidida.
	Approve(ctx context.Context, appID, decidedBy string, profile MemberProfile) (*Application, error)

	// Reject marca la solicitud REJECTED con la nota dada. El rol del
	// usuario no cambia.
	Reject(ctx context.Context, appID, decidedBy, reason string) (*Application, error)

	FindProfile(ctx context.Context, userID string) (*MemberProfile, error)
}

// RoleUpdater es el subconjunto del directorio que necesita el onboarding.
type RoleUpdater interface {
	UpdateRole(ctx context.Context, id string, role identity.Role) error
}

// ─────────────────────────────────────────────────────────────
// Servicio
// ─────────────────────────────────────────────────────────────

// Service orquesta las transiciones de rol sobre el Store y notifica las
// decisiones. Las validaciones de elegibilidad viven acá; el Store sólo
// garantiza atomicidad.
type Service struct {
	store Store
	users directory.Store
	roles RoleUpdater
	sink  notify.Sink
}

func NewService(store Store, users directory.Store, roles RoleUpdater, sink notify.Sink) *Service {
	return &Service{store: store, users: users, roles: roles, sink: sink}
}

// Onboard activa una cuenta GUEST subiéndola a USER. Los datos de contacto
// se persisten siempre (un re-submit los pisa); la promoción de rol ocurre
// sólo si el usuario sigue siendo GUEST, lo que hace el re-submit idempotente.
func (s *Service) Onboard(ctx context.Context, userID string, in OnboardingInput) (*directory.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !in.AgreedToTerms {
		return nil, fmt.Errorf("membership: terms not agreed")
	}
	if err := s.users.SaveOnboarding(ctx, userID, directory.Onboarding{
		Nickname:  in.Nickname,
		Phone:     in.Phone,
		BirthDate: in.BirthDate,
		Gender:    in.Gender,
	}); err != nil {
		return nil, err
	}
	if u.Role == identity.RoleGuest {
		if err := s.roles.UpdateRole(ctx, userID, identity.RoleUser); err != nil {
			return nil, err
		}
		logger.From(ctx).Info("onboarding completado",
			logger.UserID(userID),
			logger.Role(identity.RoleUser.String()),
		)
	}
	return s.users.FindByID(ctx, userID)
}

// Apply crea una solicitud PENDING para un USER. GUEST y MEMBER no son
// elegibles; una PENDING existente devuelve ErrAlreadyApplied.
func (s *Service) Apply(ctx context.Context, userID, motivation string) (*Application, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != identity.RoleUser {
		return nil, ErrNotEligible
	}
	app := &Application{
		ID:         uuid.NewString(),
		UserID:     userID,
		Motivation: motivation,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("solicitud de membresía creada",
		logger.UserID(userID),
		logger.ApplicationID(app.ID),
	)
	return app, nil
}

// Approve decide una solicitud PENDING: la marca APPROVED, sube el rol del
// solicitante a MEMBER y crea su perfil en una sola transacción. Emite
// exactamente una notificación después del commit; si el envío falla la
// transición NO se revierte, el estado del negocio manda.
func (s *Service) Approve(ctx context.Context, applicationID, decidedBy string) (*Application, error) {
	app, err := s.store.FindApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, app.UserID)
	if err != nil {
		return nil, err
	}

	profile := MemberProfile{
		UserID:   u.ID,
		Nickname: u.DisplayName,
		JoinedAt: time.Now().UTC(),
	}
	decided, err := s.store.Approve(ctx, applicationID, decidedBy, profile)
	if err != nil {
		return nil, err
	}

	if err := s.sink.Enqueue(ctx, u.ID, notify.TypeApplicationApproved,
		"Tu solicitud de membresía fue aprobada. ¡Bienvenido!"); err != nil {
		logger.From(ctx).Warn("notificación de aprobación no encolada",
			logger.ApplicationID(applicationID), logger.Err(err))
	}
	logger.From(ctx).Info("solicitud aprobada",
		logger.ApplicationID(applicationID),
		logger.UserID(u.ID),
		logger.String("decided_by", decidedBy),
	)
	return decided, nil
}

// Reject decide una solicitud PENDING en negativo. El usuario sigue siendo
// USER y puede volver a postular más adelante.
func (s *Service) Reject(ctx context.Context, applicationID, decidedBy, reason string) (*Application, error) {
	decided, err := s.store.Reject(ctx, applicationID, decidedBy, reason)
	if err != nil {
		return nil, err
	}
	if err := s.sink.Enqueue(ctx, decided.UserID, notify.TypeApplicationRejected,
		"Tu solicitud de membresía fue rechazada."); err != nil {
		logger.From(ctx).Warn("notificación de rechazo no encolada",
			logger.ApplicationID(applicationID), logger.Err(err))
	}
	logger.From(ctx).Info("solicitud rechazada",
		logger.ApplicationID(applicationID),
		logger.UserID(decided.UserID),
		logger.String("decided_by", decidedBy),
	)
	return decided, nil
}

// ListPending devuelve las solicitudes sin decidir, más viejas primero.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]Application, error) {
	return s.store.ListApplications(ctx, StatusPending, limit, offset)
}

// Profile devuelve el perfil de miembro del usuario.
func (s *Service) Profile(ctx context.Context, userID string) (*MemberProfile, error) {
	return s.store.FindProfile(ctx, userID)
}
