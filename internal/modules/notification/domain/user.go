package domain

import "github.com/google/uuid"

const (
	RoleAdmin  = "admin"
	RoleTalent = "talent"
	RoleClient = "client"
)

// User is the local copy of a recipient owned by the identity service.
// Notifications may only reference users present in this directory.
type User struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	DisplayName string    `json:"displayName" validate:"required"`
	Role        string    `json:"role" validate:"required,oneof=admin talent client"`
}
