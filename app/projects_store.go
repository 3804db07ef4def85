package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/models"

	"github.com/google/uuid"
)

const projectColumns = `
		id,
		user_id,
		name,
		COALESCE(description, ''),
		status,
		COALESCE(customer_name, ''),
		COALESCE(site_address, ''),
		start_date,
		end_date,
		created_at,
		updated_at`

// ProjectChanges carries a partial update; nil fields are left untouched.
type ProjectChanges struct {
	Name         *string
	Description  *string
	Status       *string
	CustomerName *string
	SiteAddress  *string
	StartDate    *time.Time
	EndDate      *time.Time
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p                  models.Project
		startDate, endDate sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.CustomerName,
		&p.SiteAddress,
		&startDate,
		&endDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Project{}, err
	}
	p.StartDate = nullableTimeToPtr(startDate)
	p.EndDate = nullableTimeToPtr(endDate)
	return p, nil
}

// CreateProject inserts a new project owned by the caller. The quota count
// and the insert share one serializable transaction; of two concurrent
// creates with one slot left, one aborts with a serialization failure
// instead of both landing.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Project{}, err
	}
	defer tx.Rollback()

	if err := checkProjectQuota(ctx, tx, p.UserID); err != nil {
		return models.Project{}, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO projects (id, user_id, name, description, status, customer_name, site_address, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING`+projectColumns+`;
	`,
		uuid.NewString(),
		p.UserID,
		p.Name,
		nullIfEmpty(p.Description),
		p.Status,
		nullIfEmpty(p.CustomerName),
		nullIfEmpty(p.SiteAddress),
		nullableTime(p.StartDate),
		nullableTime(p.EndDate),
	)
	created, err := scanProject(row)
	if err != nil {
		return models.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Project{}, err
	}
	return created, nil
}

// ListProjects returns a page of the user's projects plus the total count.
// status narrows the list when non-empty.
func (s *Store) ListProjects(ctx context.Context, userID, status string, page, pageSize int) ([]models.Project, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM projects
		WHERE user_id = $1 AND ($2 = '' OR status = $2);
	`, userID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT`+projectColumns+`
		FROM projects
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3
		OFFSET $4;
	`, userID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetProject fetches one project scoped to its owner.
func (s *Store) GetProject(ctx context.Context, projectID, userID string) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+projectColumns+`
		FROM projects
		WHERE id = $1 AND user_id = $2;
	`, projectID, userID)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// UpdateProject applies a partial update and returns the new row.
func (s *Store) UpdateProject(ctx context.Context, projectID, userID string, ch ProjectChanges) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			status = COALESCE($5, status),
			customer_name = COALESCE($6, customer_name),
			site_address = COALESCE($7, site_address),
			start_date = COALESCE($8, start_date),
			end_date = COALESCE($9, end_date),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING`+projectColumns+`;
	`,
		projectID,
		userID,
		ch.Name,
		ch.Description,
		ch.Status,
		ch.CustomerName,
		ch.SiteAddress,
		nullableTime(ch.StartDate),
		nullableTime(ch.EndDate),
	)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// DeleteProject removes a project row.
func (s *Store) DeleteProject(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM projects
		WHERE id = $1 AND user_id = $2;
	`, projectID, userID)
	if err != nil {
		return err
	}
	if !rowsTouched(res) {
		return ErrProjectNotFound
	}
	return nil
}

// DuplicateProject copies a project into a fresh draft. newName overrides
// the default " (copy)" suffix when non-empty. Quota is enforced in the
// same serializable transaction as the insert, as in CreateProject.
func (s *Store) DuplicateProject(ctx context.Context, projectID, userID, newName string) (models.Project, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Project{}, err
	}
	defer tx.Rollback()

	if err := checkProjectQuota(ctx, tx, userID); err != nil {
		return models.Project{}, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO projects (id, user_id, name, description, status, customer_name, site_address, start_date, end_date)
		SELECT $3, user_id, COALESCE(NULLIF($4, ''), name || ' (copy)'), description, $5, customer_name, site_address, start_date, end_date
		FROM projects
		WHERE id = $1 AND user_id = $2
		RETURNING`+projectColumns+`;
	`, projectID, userID, uuid.NewString(), newName, models.ProjectDraft)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
