package app

import (
	"context"
	"database/sql"

	"github.com/kkk9131/Scaff-Saas/app/models"
	"github.com/kkk9131/Scaff-Saas/auth"
)

// UpsertUserFromClaims mirrors the verified token identity into the users
// table. Called on every authenticated request, so it doubles as a
// last-login heartbeat.
func (s *Store) UpsertUserFromClaims(ctx context.Context, claims *auth.Claims) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, last_login)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		    last_login = now();
	`, claims.Subject, claims.Email, claims.Name)
	return err
}

// GetUser loads the mirrored user row.
func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	var (
		u           models.User
		email, name sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, last_login
		FROM users
		WHERE id = $1;
	`, userID).Scan(&u.ID, &email, &name, &u.LastLogin)
	if err != nil {
		return models.User{}, err
	}
	u.Email = email.String
	u.Name = name.String
	return u, nil
}
