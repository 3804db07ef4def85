package app

import (
	"context"
	"log"

	"github.com/kkk9131/Scaff-Saas/app/models"
)

// CreateJob records a queued analysis job and returns its id.
func (s *Store) CreateJob(ctx context.Context, projectID, drawingID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (project_id, drawing_id, status)
		VALUES ($1, $2, $3)
		RETURNING id;
	`, projectID, drawingID, models.JobQueued).Scan(&id)
	if err != nil {
		return "", err
	}
	log.Printf("created analysis job %s for project %s", id, projectID)
	return id, nil
}

func (s *Store) MarkJobRunning(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1;
	`, jobID, models.JobRunning)
	return err
}

func (s *Store) CompleteJob(ctx context.Context, jobID string, result []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, result = $3, updated_at = now() WHERE id = $1;
	`, jobID, models.JobCompleted, result)
	return err
}

func (s *Store) FailJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1;
	`, jobID, models.JobFailed)
	return err
}

// FindJobStatus returns the job row for status polling. The ownership join
// keeps one user from reading another's job results. sql.ErrNoRows passes
// through for the handler to map.
func (s *Store) FindJobStatus(ctx context.Context, jobID, userID string) (models.JobStatus, error) {
	var js models.JobStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT j.id, j.project_id, j.status, j.result
		FROM jobs j
		JOIN projects p ON p.id = j.project_id
		WHERE j.id = $1 AND p.user_id = $2;
	`, jobID, userID).Scan(&js.ID, &js.ProjectID, &js.Status, &js.Result)
	if err != nil {
		return models.JobStatus{}, err
	}
	return js, nil
}
