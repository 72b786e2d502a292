// Package model defines the data structures used throughout the application.
package model

import "time"

// Role values stored on a UserProfile. RoleAdmin is the only admin predicate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserProfile is the mutable profile record stored at users/{uid}.
//
// Region and City start empty and are assigned exactly once during region
// setup. Admins may stay without a city: they browse nationwide.
//
// LikedNews, Following and Followers are sets. They are kept in their own
// relation tables and keep insertion order, which is the order the
// following feed uses when it has to truncate.
type UserProfile struct {
	ID           string    `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	GoogleID     string    `json:"-"           db:"google_id"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	PhotoURL     string    `json:"photoURL"    db:"photo_url"`
	Region       string    `json:"region"      db:"region"`
	City         string    `json:"city"        db:"city"`
	Town         string    `json:"town"        db:"town"`
	Role         string    `json:"role"        db:"role"`
	Bio          string    `json:"bio"         db:"bio"`
	LikedNews    []string  `json:"likedNews"`
	Following    []string  `json:"following"`
	Followers    []string  `json:"followers"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CurrentUser is the unified view of a signed-in user: the session identity
// merged with the profile record. It is what every page-level component
// receives.
type CurrentUser struct {
	UID           string   `json:"uid"`
	Email         string   `json:"email"`
	DisplayName   string   `json:"displayName"`
	PhotoURL      string   `json:"photoURL"`
	Region        string   `json:"region"`
	City          string   `json:"city"`
	Town          string   `json:"town"`
	Role          string   `json:"role"`
	Bio           string   `json:"bio"`
	LikedNews     []string `json:"likedNews"`
	Following     []string `json:"following"`
	Followers     []string `json:"followers"`
	IsAdmin       bool     `json:"isAdmin"`
	ProfileLoaded bool     `json:"profileLoaded"`
}
