package models

import (
	"encoding/json"
	"time"
)

// Drawing is one saved version of a project's scaffold design JSON.
// Versions are append-only rows; the newest created_at is the restore target.
type Drawing struct {
	ID             string          `json:"id" db:"id"`
	ProjectID      string          `json:"project_id" db:"project_id"`
	DesignJSON     json.RawMessage `json:"design_json" db:"design_json"`
	BuildingDataID string          `json:"building_data_id,omitempty" db:"building_data_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
