package inventory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, productID string) (*Item, error)
	ListItems(ctx context.Context, status *StockStatus) ([]*Item, error)
	UpdateItemQuantity(ctx context.Context, productID string, quantity int, status StockStatus, at time.Time) error

	InsertMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, productID string) ([]*Movement, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateItem(ctx context.Context, item *Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_items (
			product_id, name, category, unit,
			quantity, threshold, status, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		item.ProductID,
		item.Name,
		item.Category,
		item.Unit,
		item.Quantity,
		item.Threshold,
		item.Status,
		item.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrItemExists
	}
	return err
}

func (r *repository) GetItem(ctx context.Context, productID string) (*Item, error) {
	var item Item
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, name, category, unit, quantity, threshold, status, updated_at
		FROM inventory_items
		WHERE product_id = $1
	`, productID).Scan(
		&item.ProductID,
		&item.Name,
		&item.Category,
		&item.Unit,
		&item.Quantity,
		&item.Threshold,
		&item.Status,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, status *StockStatus) ([]*Item, error) {
	query := `
		SELECT product_id, name, category, unit, quantity, threshold, status, updated_at
		FROM inventory_items
	`
	args := []any{}

	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ProductID,
			&item.Name,
			&item.Category,
			&item.Unit,
			&item.Quantity,
			&item.Threshold,
			&item.Status,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *repository) UpdateItemQuantity(ctx context.Context, productID string, quantity int, status StockStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = $1, status = $2, updated_at = $3
		WHERE product_id = $4
	`, quantity, status, at, productID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) InsertMovement(ctx context.Context, m *Movement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_movements (
			id, product_id, type, quantity,
			created_by, reference, note, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		m.ID,
		m.ProductID,
		m.Type,
		m.Quantity,
		m.CreatedBy,
		m.Reference,
		m.Note,
		m.CreatedAt,
	)
	return err
}

// ListMovements returns a product's full history, oldest first, so a fold
// from zero reproduces the cached quantity.
func (r *repository) ListMovements(ctx context.Context, productID string) ([]*Movement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity, created_by, reference, note, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at ASC, id ASC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*Movement
	for rows.Next() {
		var (
			m         Movement
			reference sql.NullString
			note      sql.NullString
		)
		if err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.Type,
			&m.Quantity,
			&m.CreatedBy,
			&reference,
			&note,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		if reference.Valid {
			m.Reference = &reference.String
		}
		if note.Valid {
			m.Note = &note.String
		}
		movements = append(movements, &m)
	}

	return movements, rows.Err()
}
