package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/identity"
)

// UserRoles es el subconjunto del directorio que necesita el store en
// memoria: leer el rol vigente y actualizarlo.
type UserRoles interface {
	RoleUpdater
	FindByID(ctx context.Context, id string) (*directory.User, error)
}

// Memory replica la semántica del store pg para tests y dev local,
// incluyendo la atomicidad de Approve: todo bajo el mismo mutex.
type Memory struct {
	mu       sync.Mutex
	apps     map[string]*Application
	profiles map[string]*MemberProfile
	users    UserRoles
}

func NewMemory(users UserRoles) *Memory {
	return &Memory{
		apps:     make(map[string]*Application),
		profiles: make(map[string]*MemberProfile),
		users:    users,
	}
}

func (m *Memory) CreateApplication(ctx context.Context, app *Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.UserID == app.UserID && a.Status == StatusPending {
			return ErrAlreadyApplied
		}
	}
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *Memory) FindApplication(ctx context.Context, id string) (*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListApplications(ctx context.Context, status string, limit, offset int) ([]Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Application
	for _, a := range m.apps {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Approve(ctx context.Context, appID, decidedBy string, profile MemberProfile) (*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.apps[appID]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	if a.Status != StatusPending {
		return nil, ErrNotPending
	}
	// Misma semántica que el UPDATE condicionado del store pg: sólo
	// USER→MEMBER; un ADMIN promovido entre Apply y Approve no baja.
	u, err := m.users.FindByID(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role == identity.RoleUser {
		if err := m.users.UpdateRole(ctx, a.UserID, identity.RoleMember); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	a.Status = StatusApproved
	a.DecidedAt = &now
	a.DecidedBy = decidedBy
	// creado si falta, como el ON CONFLICT DO NOTHING del store pg
	if _, ok := m.profiles[profile.UserID]; !ok {
		pp := profile
		m.profiles[profile.UserID] = &pp
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) Reject(ctx context.Context, appID, decidedBy, reason string) (*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.apps[appID]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	if a.Status != StatusPending {
		return nil, ErrNotPending
	}
	now := time.Now().UTC()
	a.Status = StatusRejected
	a.Reason = reason
	a.DecidedAt = &now
	a.DecidedBy = decidedBy
	cp := *a
	return &cp, nil
}

func (m *Memory) FindProfile(ctx context.Context, userID string) (*MemberProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

var _ Store = (*Memory)(nil)
