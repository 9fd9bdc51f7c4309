package users

import (
	"time"

	"github.com/comanda-pos/comanda/internal/shared"
)

// User represents a staff account for management screens.
type User struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateInput carries a new account request.
type CreateInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin mesero cocina"`
}
