package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/kkk9131/Scaff-Saas/app/models"
)

// GetLatestDrawing returns the newest saved design for a project the caller
// owns. The ownership join doubles as the existence check, so a foreign
// project and a missing drawing both surface as ErrDrawingNotFound.
func (s *Store) GetLatestDrawing(ctx context.Context, projectID, userID string) (models.Drawing, error) {
	var (
		d        models.Drawing
		building sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT sd.id, sd.project_id, sd.design_json, sd.building_data_id,
		       sd.created_at, sd.updated_at
		FROM scaffold_designs sd
		JOIN projects p ON p.id = sd.project_id
		WHERE sd.project_id = $1 AND p.user_id = $2
		ORDER BY sd.created_at DESC
		LIMIT 1;
	`, projectID, userID).Scan(&d.ID, &d.ProjectID, &d.DesignJSON, &building,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Drawing{}, ErrDrawingNotFound
		}
		return models.Drawing{}, err
	}
	d.BuildingDataID = building.String
	return d, nil
}

// SaveDrawing appends a new design version. The INSERT..SELECT guards
// ownership; zero rows back means the project is missing or foreign.
func (s *Store) SaveDrawing(ctx context.Context, projectID, userID string, designJSON json.RawMessage, buildingDataID string) (models.Drawing, error) {
	var (
		d        models.Drawing
		building sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scaffold_designs (id, project_id, design_json, building_data_id)
		SELECT $1, p.id, $3, $4
		FROM projects p
		WHERE p.id = $2 AND p.user_id = $5
		RETURNING id, project_id, design_json, building_data_id, created_at, updated_at;
	`, uuid.NewString(), projectID, []byte(designJSON), nullIfEmpty(buildingDataID), userID).
		Scan(&d.ID, &d.ProjectID, &d.DesignJSON, &building, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Drawing{}, ErrProjectNotFound
		}
		return models.Drawing{}, err
	}
	d.BuildingDataID = building.String
	return d, nil
}

// GetDrawingByID loads a design without an ownership check. The analysis
// worker uses it; job rows only ever reference drawings the job's owner
// submitted.
func (s *Store) GetDrawingByID(ctx context.Context, drawingID string) (models.Drawing, error) {
	var (
		d        models.Drawing
		building sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, design_json, building_data_id, created_at, updated_at
		FROM scaffold_designs
		WHERE id = $1;
	`, drawingID).Scan(&d.ID, &d.ProjectID, &d.DesignJSON, &building,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Drawing{}, ErrDrawingNotFound
		}
		return models.Drawing{}, err
	}
	d.BuildingDataID = building.String
	return d, nil
}
