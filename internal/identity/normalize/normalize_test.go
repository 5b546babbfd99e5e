package normalize

import (
	"testing"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

func TestKakao_FullProfile(t *testing.T) {
	reg := NewRegistry()

	attrs := map[string]any{
		"id": float64(12345), // JSON number
		"kakao_account": map[string]any{
			"email": "a@x.com",
			"profile": map[string]any{
				"nickname":          "Alice",
				"profile_image_url": "https://img.example/alice.png",
			},
		},
	}

	ci, fellBack := reg.Normalize("kakao", attrs, "id")
	if fellBack {
		t.Fatalf("kakao no debería caer al default")
	}
	want := identity.CanonicalIdentity{
		Provider:  "kakao",
		SubjectID: "12345",
		Email:     "a@x.com",
		Name:      "Alice",
		AvatarURL: "https://img.example/alice.png",
	}
	if ci != want {
		t.Fatalf("got %+v want %+v", ci, want)
	}
}

func TestKakao_DeniedScopesLeaveFieldsUnset(t *testing.T) {
	reg := NewRegistry()

	// Usuario negó profile_nickname y profile_image: no hay sub-mapa profile.
	attrs := map[string]any{
		"id": float64(777),
		"kakao_account": map[string]any{
			"email": "b@x.com",
		},
	}
	ci, _ := reg.Normalize("kakao", attrs, "id")
	if ci.SubjectID != "777" || ci.Email != "b@x.com" {
		t.Fatalf("unexpected: %+v", ci)
	}
	if ci.Name != "" || ci.AvatarURL != "" {
		t.Fatalf("campos negados deberían quedar vacíos: %+v", ci)
	}

	// Caso extremo: ni siquiera kakao_account presente. No debe fallar.
	ci, _ = reg.Normalize("kakao", map[string]any{"id": "9"}, "id")
	if ci.SubjectID != "9" || ci.Email != "" {
		t.Fatalf("unexpected: %+v", ci)
	}
}

func TestNaver_SelfReferentialNesting(t *testing.T) {
	reg := NewRegistry()

	attrs := map[string]any{
		"resultcode": "00",
		"message":    "success",
		"response": map[string]any{
			"id":            "naver-abc",
			"email":         "c@x.com",
			"nickname":      "Carol",
			"profile_image": "https://img.example/carol.png",
		},
	}
	ci, fellBack := reg.Normalize("naver", attrs, "response")
	if fellBack {
		t.Fatalf("naver no debería caer al default")
	}
	if ci.SubjectID != "naver-abc" || ci.Email != "c@x.com" || ci.Name != "Carol" {
		t.Fatalf("unexpected: %+v", ci)
	}

	// Payload sin "response": campos vacíos, sin panics.
	ci, _ = reg.Normalize("naver", map[string]any{"resultcode": "99"}, "response")
	if ci.SubjectID != "" {
		t.Fatalf("esperaba subject vacío, got %q", ci.SubjectID)
	}
}

func TestGoogle_FlatPayload(t *testing.T) {
	reg := NewRegistry()

	attrs := map[string]any{
		"sub":     "110234",
		"email":   "d@x.com",
		"name":    "Dana",
		"picture": "https://img.example/dana.png",
	}
	ci, _ := reg.Normalize("google", attrs, "sub")
	if ci.SubjectID != "110234" || ci.Name != "Dana" || ci.AvatarURL == "" {
		t.Fatalf("unexpected: %+v", ci)
	}
}

func TestLookup_UnknownProviderFallsBackExplicitly(t *testing.T) {
	reg := NewRegistry()

	// Un provider con typo cae al default (forma kakao) y lo reporta.
	attrs := map[string]any{
		"id": "55",
		"kakao_account": map[string]any{
			"email": "e@x.com",
		},
	}
	ci, fellBack := reg.Normalize("kakaoo", attrs, "id")
	if !fellBack {
		t.Fatalf("esperaba fallback para provider desconocido")
	}
	if ci.Provider != "kakaoo" || ci.SubjectID != "55" || ci.Email != "e@x.com" {
		t.Fatalf("unexpected: %+v", ci)
	}
}

func TestRegister_CustomStrategyOverrides(t *testing.T) {
	reg := NewRegistry()
	reg.Register("kakao", naverNormalizer{})

	// Ahora "kakao" usa la forma naver: demuestra que el registry decide.
	attrs := map[string]any{
		"response": map[string]any{"id": "x1"},
	}
	ci, fellBack := reg.Normalize("kakao", attrs, "response")
	if fellBack || ci.SubjectID != "x1" {
		t.Fatalf("override no aplicado: %+v fellBack=%v", ci, fellBack)
	}
}
