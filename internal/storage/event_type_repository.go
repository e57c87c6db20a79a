package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/libs/db"
)

type EventTypeRepository struct {
	pool *db.Pool
}

func NewEventTypeRepository(pool *db.Pool) *EventTypeRepository {
	return &EventTypeRepository{pool: pool}
}

func (r *EventTypeRepository) CreateTx(ctx context.Context, tx pgx.Tx, et model.EventType) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO event_types (user_id, title, slug, description, length_mins)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, et.UserID, et.Title, et.Slug, et.Description, et.LengthMins).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *EventTypeRepository) GetBySlug(ctx context.Context, userID, slug string) (model.EventType, error) {
	var et model.EventType
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, slug, COALESCE(description, ''), length_mins, created_at
		FROM event_types
		WHERE user_id = $1 AND slug = $2
	`, userID, slug).Scan(
		&et.ID,
		&et.UserID,
		&et.Title,
		&et.Slug,
		&et.Description,
		&et.LengthMins,
		&et.CreatedAt,
	)
	if err != nil {
		return model.EventType{}, err
	}
	return et, nil
}

func (r *EventTypeRepository) ListByUser(ctx context.Context, userID string) ([]model.EventType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, slug, COALESCE(description, ''), length_mins, created_at
		FROM event_types
		WHERE user_id = $1
		ORDER BY length_mins ASC, title ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.EventType
	for rows.Next() {
		var et model.EventType
		if err := rows.Scan(
			&et.ID,
			&et.UserID,
			&et.Title,
			&et.Slug,
			&et.Description,
			&et.LengthMins,
			&et.CreatedAt,
		); err != nil {
			return nil, err
		}
		types = append(types, et)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return types, nil
}
