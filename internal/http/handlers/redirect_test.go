package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuccessRedirectCarriesToken(t *testing.T) {
	got, err := buildSuccessRedirect("http://front.example.com:3000/auth/done", "", "tok123")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "front.example.com:3000", u.Host)
	require.Equal(t, "/auth/done", u.Path)
	require.Equal(t, "tok123", u.Query().Get("token"))
}

func TestSuccessRedirectReturnToOverridesPathOnly(t *testing.T) {
	got, err := buildSuccessRedirect("http://front.example.com:3000/auth/done", "/posts/42", "tok")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "front.example.com:3000", u.Host)
	require.Equal(t, "/posts/42", u.Path)
	require.Equal(t, "tok", u.Query().Get("token"))
}

func TestSuccessRedirectRejectsForeignTargets(t *testing.T) {
	cases := map[string]string{
		"host absoluto":       "http://evil.example.com/steal",
		"https absoluto":      "https://evil.example.com/",
		"protocol-relative":   "//evil.example.com/steal",
		"path relativo":       "posts/42",
		"esquema alternativo": "javascript:alert(1)",
	}
	for name, returnTo := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildSuccessRedirect("http://front.example.com:3000/auth/done", returnTo, "tok")
			require.Error(t, err)
		})
	}
}

func TestValidateOriginPortMustMatchExactly(t *testing.T) {
	allowed, _ := url.Parse("http://front.example.com:3000/auth/done")

	same, _ := url.Parse("http://front.example.com:3000/otra")
	require.NoError(t, validateOrigin(same, allowed))

	otherPort, _ := url.Parse("http://front.example.com:3001/auth/done")
	require.Error(t, validateOrigin(otherPort, allowed))

	otherHost, _ := url.Parse("http://evil.example.com:3000/auth/done")
	require.Error(t, validateOrigin(otherHost, allowed))
}

func TestValidateOriginImplicitPorts(t *testing.T) {
	allowed, _ := url.Parse("https://front.example.com/auth/done")

	implicit, _ := url.Parse("https://front.example.com/x")
	require.NoError(t, validateOrigin(implicit, allowed))

	explicit, _ := url.Parse("https://front.example.com:443/x")
	require.NoError(t, validateOrigin(explicit, allowed))

	httpScheme, _ := url.Parse("http://front.example.com/x")
	require.Error(t, validateOrigin(httpScheme, allowed))
}
