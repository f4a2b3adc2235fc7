package queries

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekesaoliver/NexaChat-App/app/models"
)

type UserQueries struct {
	DB *sql.DB
}

func (q *UserQueries) CreateUser(u *models.User) error {
	query := `INSERT INTO users (id, full_name, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := q.DB.Exec(query, u.ID, u.FullName, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("unable to create user: %w", err)
	}
	return nil
}

// GetUserByEmail returns (nil, nil) when no such user exists.
func (q *UserQueries) GetUserByEmail(email string) (*models.User, error) {
	u := models.User{}
	query := `SELECT id, full_name, email, password_hash, created_at FROM users WHERE email = $1`
	err := q.DB.QueryRow(query, email).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to get user: %w", err)
	}
	return &u, nil
}

func (q *UserQueries) GetUserByID(id uuid.UUID) (*models.User, error) {
	u := models.User{}
	query := `SELECT id, full_name, email, password_hash, created_at FROM users WHERE id = $1`
	err := q.DB.QueryRow(query, id).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to get user: %w", err)
	}
	return &u, nil
}
