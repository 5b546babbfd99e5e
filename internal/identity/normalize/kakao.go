package normalize

import (
	"fmt"
	"strconv"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// kakaoNormalizer handles the kakao user-info shape:
//
//	{
//	  "id": 12345,
//	  "kakao_account": {
//	    "email": "a@x.com",                       // absent without account_email scope
//	    "profile": {
//	      "nickname": "Alice",                    // absent without profile_nickname scope
//	      "profile_image_url": "https://..."      // absent without profile_image scope
//	    }
//	  }
//	}
//
// The subject id lives at the top level under subjectKey ("id"); profile
// fields sit one level down under the fixed "kakao_account" sub-key, each
// gated by a granted scope. Denied scopes just leave fields unset.
type kakaoNormalizer struct{}

func (kakaoNormalizer) Normalize(attrs map[string]any, subjectKey string) identity.CanonicalIdentity {
	ci := identity.CanonicalIdentity{
		SubjectID: str(attrs, subjectKey),
	}

	account := subMap(attrs, "kakao_account")
	ci.Email = str(account, "email")

	profile := subMap(account, "profile")
	ci.Name = str(profile, "nickname")
	ci.AvatarURL = str(profile, "profile_image_url")

	return ci
}

// anyToString renders a raw attribute value as string. Provider ids llegan
// como float64 (JSON number) o string según el provider; acá se unifican.
func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// ids numéricos: evitar notación científica y el ".0" de float
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
