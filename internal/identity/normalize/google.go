package normalize

import "github.com/dropDatabas3/memberhub/internal/identity"

// googleNormalizer handles the flat OIDC userinfo shape:
//
//	{"sub": "110...", "email": "a@x.com", "name": "Alice", "picture": "https://..."}
//
// No nesting quirks; subjectKey is "sub".
type googleNormalizer struct{}

func (googleNormalizer) Normalize(attrs map[string]any, subjectKey string) identity.CanonicalIdentity {
	return identity.CanonicalIdentity{
		SubjectID: str(attrs, subjectKey),
		Email:     str(attrs, "email"),
		Name:      str(attrs, "name"),
		AvatarURL: str(attrs, "picture"),
	}
}
