package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

func testSecret() string {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	iss, err := New(testSecret(), "https://memberhub.example", ttl)
	require.NoError(t, err)
	return iss
}

func TestIssueValidateParse_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t, 30*time.Minute)

	signed, exp, err := iss.Issue("42", "member@x.com", []identity.Role{identity.RoleMember})
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	// Validar 1ms después de emitir: ok.
	time.Sleep(time.Millisecond)
	require.True(t, iss.Validate(signed))

	p, err := iss.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "42", p.UserID)
	require.Equal(t, "member@x.com", p.Email)
	require.Equal(t, []identity.Role{identity.RoleMember}, p.Roles)
}

func TestParse_MultipleRoles(t *testing.T) {
	iss := newTestIssuer(t, time.Minute)

	signed, _, err := iss.Issue("7", "a@x.com", []identity.Role{identity.RoleUser, identity.RoleAdmin})
	require.NoError(t, err)

	p, err := iss.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, []identity.Role{identity.RoleUser, identity.RoleAdmin}, p.Roles)
	require.True(t, p.HasAtLeast(identity.RoleMember)) // vía ADMIN
}

func TestValidate_TamperedSignature(t *testing.T) {
	iss := newTestIssuer(t, time.Minute)

	signed, _, err := iss.Issue("42", "", []identity.Role{identity.RoleUser})
	require.NoError(t, err)

	// Alterar un byte de la firma (último segmento).
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	require.False(t, iss.Validate(tampered))
}

func TestValidate_Expired(t *testing.T) {
	iss := newTestIssuer(t, 1*time.Nanosecond)

	signed, _, err := iss.Issue("42", "", []identity.Role{identity.RoleUser})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.False(t, iss.Validate(signed))
}

func TestValidate_GarbageAndWrongKey(t *testing.T) {
	iss := newTestIssuer(t, time.Minute)

	require.False(t, iss.Validate(""))
	require.False(t, iss.Validate("not.a.jwt"))
	require.False(t, iss.Validate("a.b"))

	// Token firmado por otro issuer (otra clave).
	other := make([]byte, 64)
	for i := range other {
		other[i] = byte(255 - i)
	}
	foreign, err := New(base64.StdEncoding.EncodeToString(other), "https://memberhub.example", time.Minute)
	require.NoError(t, err)
	signed, _, err := foreign.Issue("42", "", []identity.Role{identity.RoleAdmin})
	require.NoError(t, err)
	require.False(t, iss.Validate(signed))
}

func TestNew_RejectsWeakSecret(t *testing.T) {
	_, err := New("dG9vLXNob3J0", "iss", time.Minute) // "too-short"
	require.ErrorIs(t, err, ErrBadSecret)

	_, err = New("!!not base64!!", "iss", time.Minute)
	require.ErrorIs(t, err, ErrBadSecret)
}
