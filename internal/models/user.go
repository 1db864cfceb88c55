package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// CanModerate reports whether the role may delete other users' messages
// when an explicit moderation override accompanies the request.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"size:30;uniqueIndex"`
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    string `json:"-"` // Store hashed password, ignore for JSON serialization
	Role        Role   `json:"role" gorm:"size:20;default:'user'"`
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
}

// Identity is the verified identity attached to every authenticated
// request and live connection.
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// UserCompact is the trimmed user shape embedded in API responses.
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, Name: u.Name}
}

// BlockEdge is a directed blocker -> blocked relationship. An interaction
// between two users is blocked when an edge exists in either direction.
type BlockEdge struct {
	gorm.Model
	BlockerID uint `json:"blocker_id" gorm:"uniqueIndex:idx_block_pair"`
	BlockedID uint `json:"blocked_id" gorm:"uniqueIndex:idx_block_pair"`
}

type CreateLocalUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=20,alphanum"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *JwtCustomClaims) Identity() Identity {
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{ID: c.UserID, Username: c.Username, Role: role}
}
