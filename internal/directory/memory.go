package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// Memory implementa Store en memoria. Para dev y tests; replica la semántica
// del adapter pg (incluida la unicidad por (provider, subject id)).
type Memory struct {
	mu    sync.Mutex
	users map[string]*User // por id
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*User)}
}

func (m *Memory) Resolve(ctx context.Context, ci identity.CanonicalIdentity, signupRole identity.Role) (*User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Provider == ci.Provider && u.SubjectID == ci.SubjectID {
			if u.DeletedAt != nil {
				return nil, false, ErrWithdrawn
			}
			u.DisplayName = ci.Name
			u.AvatarURL = ci.AvatarURL
			u.UpdatedAt = time.Now().UTC()
			cp := *u
			return &cp, false, nil
		}
	}

	// réplica del índice único de email del adapter pg (activos solamente)
	if ci.Email != "" {
		for _, u := range m.users {
			if u.DeletedAt == nil && strings.EqualFold(u.Email, ci.Email) {
				return nil, false, ErrDuplicateEmail
			}
		}
	}

	now := time.Now().UTC()
	u := &User{
		ID:          uuid.NewString(),
		Provider:    ci.Provider,
		SubjectID:   ci.SubjectID,
		Email:       ci.Email,
		DisplayName: ci.Name,
		AvatarURL:   ci.AvatarURL,
		Role:        signupRole,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, true, nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SaveOnboarding(ctx context.Context, id string, ob Onboarding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	if ob.Nickname != "" {
		u.DisplayName = ob.Nickname
	}
	u.Phone = ob.Phone
	u.BirthDate = ob.BirthDate
	u.Gender = ob.Gender
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SoftDelete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.DeletedAt == nil {
		now := time.Now().UTC()
		u.DeletedAt = &now
		u.UpdatedAt = now
	}
	return nil
}

func (m *Memory) List(ctx context.Context, limit, offset int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var all []User
	for _, u := range m.users {
		if u.DeletedAt == nil {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// UpdateRole muta el rol directamente (override administrativo y soporte
// del store de membership en memoria).
func (m *Memory) UpdateRole(ctx context.Context, id string, role identity.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

var _ Store = (*Memory)(nil)
