package domain

import "github.com/juju/collections/set"

const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

type Role struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type User struct {
	ID              string   `db:"id" json:"id"`
	Name            string   `db:"name" json:"name"`
	Email           string   `db:"email" json:"email"`
	Phone           string   `db:"phone" json:"phone"`
	Hash            string   `db:"password_hash" json:"-"`
	EmailVerifiedAt *string  `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt       string   `db:"created_at" json:"created_at"`
	UpdatedAt       string   `db:"updated_at" json:"updated_at"`
	Roles           []string `db:"-" json:"roles"`
}

func (u *User) HasVerifiedEmail() bool {
	return u.EmailVerifiedAt != nil && *u.EmailVerifiedAt != ""
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Caller is the authenticated identity behind a request. Roles are resolved
// from the store on every request.
type Caller struct {
	ID    string
	Name  string
	Email string
	Roles set.Strings
}

func NewCaller(u *User) *Caller {
	return &Caller{ID: u.ID, Name: u.Name, Email: u.Email, Roles: set.NewStrings(u.Roles...)}
}

// HasRole reports whether the caller holds role. A nil caller holds nothing.
func (c *Caller) HasRole(role string) bool {
	if c == nil || c.Roles == nil {
		return false
	}
	return c.Roles.Contains(role)
}
