// Package models defines user rows mirrored from verified auth claims.
package models

import "time"

type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name,omitempty" db:"name"`
	LastLogin time.Time `json:"last_login" db:"last_login"`
}
