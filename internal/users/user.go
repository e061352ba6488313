package users

import "time"

type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// ValidSignupRole reports whether a role may be chosen at registration.
// Admin accounts are provisioned out of band.
func ValidSignupRole(r Role) bool {
	return r == RoleBuyer || r == RoleProvider
}

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusBanned Status = "BANNED"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}
