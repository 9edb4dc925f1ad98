package notification

import (
	"context"
	"database/sql"

	"bonstock-be/internal/actor"
)

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListForRole(ctx context.Context, role actor.Role, limit int32) ([]*Notification, error)
	ListForUser(ctx context.Context, userID string, limit int32) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context, role actor.Role, userID string) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, title, message, type,
			recipient_role, recipient_id, reference, read, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		n.ID,
		n.Title,
		n.Message,
		n.Type,
		n.RecipientRole,
		n.RecipientID,
		n.Reference,
		n.Read,
		n.CreatedAt,
	)
	return err
}

func (r *repository) ListForRole(ctx context.Context, role actor.Role, limit int32) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, message, type, recipient_role, recipient_id, reference, read, created_at
		FROM notifications
		WHERE recipient_role = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func (r *repository) ListForUser(ctx context.Context, userID string, limit int32) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, message, type, recipient_role, recipient_id, reference, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]*Notification, error) {
	var out []*Notification
	for rows.Next() {
		var (
			n             Notification
			recipientRole sql.NullString
			recipientID   sql.NullString
		)
		if err := rows.Scan(
			&n.ID,
			&n.Title,
			&n.Message,
			&n.Type,
			&recipientRole,
			&recipientID,
			&n.Reference,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		if recipientRole.Valid {
			role := actor.Role(recipientRole.String)
			n.RecipientRole = &role
		}
		if recipientID.Valid {
			n.RecipientID = &recipientID.String
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *repository) MarkRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *repository) CountUnread(ctx context.Context, role actor.Role, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE read = FALSE
		  AND (recipient_role = $1 OR recipient_id = $2)
	`, role, userID).Scan(&count)
	return count, err
}
