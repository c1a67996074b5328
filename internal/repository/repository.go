package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"esp32_supervisor/internal/models"
)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.RelayEvent) error
	List(ctx context.Context, from, to time.Time, typ, writer string) ([]models.RelayEvent, error)
}

type Repository struct {
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
