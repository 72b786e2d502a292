// Package scope decides which city a data query is filtered by.
//
// Every page-level query (posts, news, popular posts) goes through Resolve so
// the admin/city branching lives in exactly one place.
package scope

import "github.com/maeuln/community/internal/model"

// Kind tells the query layer how to filter.
type Kind int

const (
	// Empty means "nothing to show": no query may be opened.
	Empty Kind = iota
	// Nationwide means no city filter (admins only).
	Nationwide
	// City filters by Scope.City.
	City
)

func (k Kind) String() string {
	switch k {
	case Nationwide:
		return "nationwide"
	case City:
		return "city"
	default:
		return "empty"
	}
}

// Scope is the effective city filter for a user.
type Scope struct {
	Kind Kind   `json:"kind"`
	City string `json:"city,omitempty"`
}

// IsEmpty reports whether queries must short-circuit to an empty list.
func (s Scope) IsEmpty() bool { return s.Kind == Empty }

// Matches reports whether a record in city belongs to the scope.
func (s Scope) Matches(city string) bool {
	switch s.Kind {
	case Nationwide:
		return true
	case City:
		return s.City == city
	default:
		return false
	}
}

func (s Scope) String() string {
	if s.Kind == City {
		return "city:" + s.City
	}
	return s.Kind.String()
}

// Resolve derives the scope for user. override is the city an admin picked
// in the city selector; it is ignored for everyone else.
func Resolve(user *model.CurrentUser, override string) Scope {
	if user == nil {
		return Scope{Kind: Empty}
	}

	if user.IsAdmin {
		if override != "" {
			return Scope{Kind: City, City: override}
		}
		return Scope{Kind: Nationwide}
	}

	if user.City == "" {
		return Scope{Kind: Empty}
	}
	return Scope{Kind: City, City: user.City}
}
