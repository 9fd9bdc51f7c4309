package auth

import (
	"time"

	"github.com/comanda-pos/comanda/internal/shared"
)

// User represents a staff account able to log in.
type User struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
	Role         shared.Role
	IsActive     bool
	CreatedAt    time.Time
}

// Actor converts the user into the request actor stored in sessions and tokens.
func (u *User) Actor() shared.Actor {
	return shared.Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}
