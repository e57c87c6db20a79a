package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/libs/db"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings (uid, user_id, event_type_id, title, description, start_time, end_time, status)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
		RETURNING id
	`, b.UID, b.UserID, b.EventTypeID, b.Title, b.Description, b.StartTime, b.EndTime, b.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	for _, a := range b.Attendees {
		if _, err := tx.Exec(ctx, `
			INSERT INTO attendees (booking_id, name, email, timezone)
			VALUES ($1, $2, $3, $4)
		`, id, a.Name, a.Email, a.TimeZone); err != nil {
			return "", err
		}
	}
	return id, nil
}

// GetByUID returns one booking, with attendees, by its public uid.
func (r *BookingRepository) GetByUID(ctx context.Context, uid string) (model.Booking, error) {
	var b model.Booking
	err := r.pool.QueryRow(ctx, bookingColumns+`
		FROM bookings
		WHERE uid = $1
	`, uid).Scan(bookingFields(&b)...)
	if err != nil {
		return model.Booking{}, err
	}
	bookings := []model.Booking{b}
	if err := r.loadAttendees(ctx, bookings); err != nil {
		return model.Booking{}, err
	}
	return bookings[0], nil
}

func (r *BookingRepository) GetByUIDForUpdate(ctx context.Context, tx pgx.Tx, uid string) (model.Booking, error) {
	var b model.Booking
	err := tx.QueryRow(ctx, bookingColumns+`
		FROM bookings
		WHERE uid = $1
		FOR UPDATE
	`, uid).Scan(bookingFields(&b)...)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, uid string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE uid = $1 AND status = 'confirmed'
		RETURNING cancelled_at
	`, uid).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListBusyIntervals returns the confirmed bookings that overlap [start, end)
// for the given calendar owner. Cancelled bookings do not block slots.
func (r *BookingRepository) ListBusyIntervals(ctx context.Context, userID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, bookingColumns+`
		FROM bookings
		WHERE user_id = $1
			AND status = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListBusyIntervalsTx is the transactional variant used when revalidating a
// slot, so it sees a cancellation made earlier in the same transaction.
func (r *BookingRepository) ListBusyIntervalsTx(ctx context.Context, tx pgx.Tx, userID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := tx.Query(ctx, bookingColumns+`
		FROM bookings
		WHERE user_id = $1
			AND status = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByUser returns the owner's bookings newest first, with attendees.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadAttendees(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) loadAttendees(ctx context.Context, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]string, len(bookings))
	byID := make(map[string]*model.Booking, len(bookings))
	for i := range bookings {
		ids[i] = bookings[i].ID
		byID[bookings[i].ID] = &bookings[i]
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, name, email, COALESCE(timezone, '')
		FROM attendees
		WHERE booking_id = ANY($1::uuid[])
		ORDER BY name ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.ID, &a.BookingID, &a.Name, &a.Email, &a.TimeZone); err != nil {
			return err
		}
		if b, ok := byID[a.BookingID]; ok {
			b.Attendees = append(b.Attendees, a)
		}
	}
	return rows.Err()
}

const bookingColumns = `
	SELECT id, uid, user_id, COALESCE(event_type_id::text, ''), title, COALESCE(description, ''),
		start_time, end_time, status, cancelled_at, created_at`

func bookingFields(b *model.Booking) []any {
	return []any{
		&b.ID,
		&b.UID,
		&b.UserID,
		&b.EventTypeID,
		&b.Title,
		&b.Description,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.CancelledAt,
		&b.CreatedAt,
	}
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(bookingFields(&b)...); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}
