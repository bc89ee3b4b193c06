package models

import "time"

// User models a registered account. The favorites tables accept either the
// ID or the email as the user key; the two keyspaces are not reconciled.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
