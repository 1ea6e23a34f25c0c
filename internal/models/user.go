package models

import (
	"time"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/encryption"
)

// UserRecord is the stored form of a user. The email is kept only as an
// envelope plus a keyed digest used for the uniqueness index.
type UserRecord struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	EmailEnc     *encryption.EncryptedData `json:"emailEnc"`
	EmailDigest  string                    `json:"emailDigest"`
	PasswordHash string                    `json:"passwordHash"`
	Role         string                    `json:"role"`
	Avatar       *string                   `json:"avatar"`
	IsActive     bool                      `json:"isActive"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

// User is the public view. It never carries the password.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Avatar    *string   `json:"avatar"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRef is the populated form of a user reference.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
