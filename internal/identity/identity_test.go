package identity

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"MEMBER", RoleMember, true},
		{"member", RoleMember, true},
		{" admin ", RoleAdmin, true},
		{"GUEST", RoleGuest, true},
		{"root", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseRole(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestRoleOrdering(t *testing.T) {
	if !RoleAdmin.AtLeast(RoleMember) {
		t.Error("ADMIN debe alcanzar el piso MEMBER")
	}
	if !RoleMember.AtLeast(RoleUser) {
		t.Error("MEMBER debe alcanzar el piso USER")
	}
	if RoleUser.AtLeast(RoleMember) {
		t.Error("USER no alcanza MEMBER")
	}
	if RoleGuest.AtLeast(RoleUser) {
		t.Error("GUEST no alcanza USER")
	}
	if !RoleUser.AtLeast(RoleUser) {
		t.Error("un rol se alcanza a sí mismo")
	}
}

func TestPrincipalHasAtLeast(t *testing.T) {
	p := Principal{UserID: "u1", Roles: []Role{RoleUser}}
	if p.HasAtLeast(RoleMember) {
		t.Error("USER no debería pasar un gate de MEMBER")
	}
	if !p.HasAtLeast(RoleGuest) {
		t.Error("USER debería pasar un gate de GUEST")
	}
	if !p.HasRole(RoleUser) {
		t.Error("HasRole exacto falló")
	}
}
