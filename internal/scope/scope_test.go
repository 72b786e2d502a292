package scope

import (
	"testing"

	"github.com/maeuln/community/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		user     *model.CurrentUser
		override string
		want     Scope
	}{
		{
			name: "signed out",
			user: nil,
			want: Scope{Kind: Empty},
		},
		{
			name:     "admin with override",
			user:     &model.CurrentUser{UID: "a1", IsAdmin: true, City: "수원시"},
			override: "강남구",
			want:     Scope{Kind: City, City: "강남구"},
		},
		{
			name: "admin without override browses nationwide",
			user: &model.CurrentUser{UID: "a1", IsAdmin: true},
			want: Scope{Kind: Nationwide},
		},
		{
			name: "user with city",
			user: &model.CurrentUser{UID: "u1", City: "서울특별시"},
			want: Scope{Kind: City, City: "서울특별시"},
		},
		{
			name:     "user override is ignored",
			user:     &model.CurrentUser{UID: "u1", City: "수원시"},
			override: "강남구",
			want:     Scope{Kind: City, City: "수원시"},
		},
		{
			name: "user without city short-circuits",
			user: &model.CurrentUser{UID: "u1"},
			want: Scope{Kind: Empty},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.user, tt.override)
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopeMatches(t *testing.T) {
	city := Scope{Kind: City, City: "수원시"}
	if !city.Matches("수원시") || city.Matches("용인시") {
		t.Error("city scope should match only its own city")
	}
	if !(Scope{Kind: Nationwide}).Matches("용인시") {
		t.Error("nationwide scope should match any city")
	}
	if (Scope{Kind: Empty}).Matches("") {
		t.Error("empty scope should match nothing")
	}
}
