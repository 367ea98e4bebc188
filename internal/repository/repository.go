package repository

import (
	"context"
	"database/sql"
	"time"

	"irrigation_dashboard/internal/models"
)

// EventRepo stores the session event log.
type EventRepo interface {
	Append(ctx context.Context, e models.DashboardEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DashboardEvent, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
