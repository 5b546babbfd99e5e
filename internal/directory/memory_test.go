package directory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

func kakaoAlice() identity.CanonicalIdentity {
	return identity.CanonicalIdentity{
		Provider:  "kakao",
		SubjectID: "12345",
		Email:     "a@x.com",
		Name:      "Alice",
		AvatarURL: "https://img.example/a.png",
	}
}

func TestResolve_FirstLoginCreatesUser(t *testing.T) {
	m := NewMemory()

	u, created, err := m.Resolve(context.Background(), kakaoAlice(), identity.RoleUser)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "kakao", u.Provider)
	require.Equal(t, "12345", u.SubjectID)
	require.Equal(t, "a@x.com", u.Email)
	require.Equal(t, "Alice", u.DisplayName)
	require.Equal(t, identity.RoleUser, u.Role)
}

func TestResolve_SecondLoginOnlyRefreshesProfile(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, created, err := m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
	require.NoError(t, err)
	require.True(t, created)

	// El usuario cambió el nickname en kakao; mismo subject id.
	again := kakaoAlice()
	again.Name = "Alicia"
	again.AvatarURL = "https://img.example/a2.png"

	second, created, err := m.Resolve(ctx, again, identity.RoleUser)
	require.NoError(t, err)
	require.False(t, created, "no debe crear un segundo usuario")
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Alicia", second.DisplayName)
	require.Equal(t, "https://img.example/a2.png", second.AvatarURL)
	require.Equal(t, first.Role, second.Role, "re-login no toca el rol")

	users, err := m.List(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestResolve_ConcurrentFirstLoginsCreateOneUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			u, _, err := m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
			if err == nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.Equal(t, ids[0], ids[i], "todos los logins concurrentes resuelven al mismo usuario")
	}
}

func TestResolve_WithdrawnAccountRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, _, err := m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
	require.NoError(t, err)
	require.NoError(t, m.SoftDelete(ctx, u.ID))

	_, _, err = m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
	require.ErrorIs(t, err, ErrWithdrawn)

	_, err = m.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_DistinctProvidersAreDistinctUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, created, err := m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
	require.NoError(t, err)
	require.True(t, created)

	naver := kakaoAlice()
	naver.Provider = "naver" // mismo subject id en otro provider
	naver.Email = "a+naver@x.com"
	_, created, err = m.Resolve(ctx, naver, identity.RoleUser)
	require.NoError(t, err)
	require.True(t, created)
}

func TestResolve_DuplicateEmailAcrossProvidersRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, _, err := m.Resolve(ctx, kakaoAlice(), identity.RoleUser)
	require.NoError(t, err)

	// misma persona intenta un primer-login por google con el mismo email
	google := kakaoAlice()
	google.Provider = "google"
	google.SubjectID = "g-99"
	google.Email = "A@X.COM" // el índice de email es case-insensitive
	_, _, err = m.Resolve(ctx, google, identity.RoleUser)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := m.List(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
}
