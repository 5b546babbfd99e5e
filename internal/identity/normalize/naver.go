package normalize

import "github.com/dropDatabas3/memberhub/internal/identity"

// naverNormalizer handles the naver user-info shape, which nests the whole
// profile under the subject-id attribute key itself:
//
//	{
//	  "resultcode": "00",
//	  "message": "success",
//	  "response": {
//	    "id": "abc-123",
//	    "email": "a@x.com",
//	    "nickname": "Alice",
//	    "profile_image": "https://..."
//	  }
//	}
//
// subjectKey is "response": the strategy re-fetches the nested map under that
// key and reads everything, id included, from inside it.
type naverNormalizer struct{}

func (naverNormalizer) Normalize(attrs map[string]any, subjectKey string) identity.CanonicalIdentity {
	resp := subMap(attrs, subjectKey)
	return identity.CanonicalIdentity{
		SubjectID: str(resp, "id"),
		Email:     str(resp, "email"),
		Name:      str(resp, "nickname"),
		AvatarURL: str(resp, "profile_image"),
	}
}
