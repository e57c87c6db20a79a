package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/libs/db"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user model.User) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO users (username, name, email, password_hash, timezone, day_start_mins, day_end_mins, time_format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, user.Username, user.Name, user.Email, user.PasswordHash,
		user.TimeZone, user.DayStartMinutes, user.DayEndMinutes, user.TimeFormat).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.get(ctx, `WHERE username = $1`, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, name, email, password_hash, timezone, day_start_mins, day_end_mins, time_format, created_at
		FROM users
	`+where, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.TimeZone,
		&user.DayStartMinutes,
		&user.DayEndMinutes,
		&user.TimeFormat,
		&user.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}
