package models

import "time"

// ProjectStatus values for the scaffold project lifecycle.
const (
	ProjectDraft     = "draft"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// ValidProjectStatus reports whether s is one of the known statuses.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectDraft, ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Project is a scaffold design project owned by a user.
type Project struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description,omitempty" db:"description"`
	Status       string     `json:"status" db:"status"`
	CustomerName string     `json:"customer_name,omitempty" db:"customer_name"`
	SiteAddress  string     `json:"site_address,omitempty" db:"site_address"`
	StartDate    *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
