package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bonstock-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context, filter Filter, limit, offset int32) ([]*Order, error)

	// RecordApproval and RecordRejection persist a decision only while the
	// order is still pending; they return false when another decision won.
	RecordApproval(ctx context.Context, o *Order) (bool, error)
	RecordRejection(ctx context.Context, o *Order) (bool, error)

	// UpdateStatus moves the order from -> to and reports whether the row
	// was still in the expected source status.
	UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, title, department, created_by, created_by_role,
			created_at, priority, status, total
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		o.ID,
		o.Title,
		o.Department,
		o.CreatedBy,
		o.CreatedByRole,
		o.CreatedAt,
		o.Priority,
		o.Status,
		o.Total,
	)
	if err != nil {
		return err
	}

	for _, li := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, name, category, unit,
				quantity, price, total
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			o.ID,
			li.ProductID,
			li.Name,
			li.Category,
			li.Unit,
			li.Quantity,
			li.Price,
			li.Total,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) Get(ctx context.Context, orderID string) (*Order, error) {
	query := `
		SELECT
			id, title, department, created_by, created_by_role,
			created_at, priority, status, total,
			approved_by, approved_at, rejected_by, rejected_at, decision_note
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID,
		&o.Title,
		&o.Department,
		&o.CreatedBy,
		&o.CreatedByRole,
		&o.CreatedAt,
		&o.Priority,
		&o.Status,
		&o.Total,
		&o.ApprovedBy,
		&o.ApprovedAt,
		&o.RejectedBy,
		&o.RejectedAt,
		&o.DecisionNote,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	items, err := r.getItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *repository) getItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			product_id, name, category, unit,
			quantity, adjusted_quantity, price, total, approved, status
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var (
			li         LineItem
			lineStatus sql.NullString
		)
		if err := rows.Scan(
			&li.ProductID,
			&li.Name,
			&li.Category,
			&li.Unit,
			&li.Quantity,
			&li.AdjustedQuantity,
			&li.Price,
			&li.Total,
			&li.Approved,
			&lineStatus,
		); err != nil {
			return nil, err
		}
		if lineStatus.Valid {
			li.Status = LineStatus(lineStatus.String)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, filter Filter, limit, offset int32) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int32("limit", limit),
		zap.Int32("offset", offset),
	)

	query := `
		SELECT
			id, title, department, created_by, created_by_role,
			created_at, priority, status, total
		FROM orders
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.Department != nil && *filter.Department != "" {
		query += fmt.Sprintf(" AND department = $%d", argIndex)
		args = append(args, *filter.Department)
		argIndex++
	}
	if filter.CreatedBy != nil && *filter.CreatedBy != "" {
		query += fmt.Sprintf(" AND created_by = $%d", argIndex)
		args = append(args, *filter.CreatedBy)
		argIndex++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.Title,
			&o.Department,
			&o.CreatedBy,
			&o.CreatedByRole,
			&o.CreatedAt,
			&o.Priority,
			&o.Status,
			&o.Total,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("list orders success", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) RecordApproval(ctx context.Context, o *Order) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, total = $2,
		    approved_by = $3, approved_at = $4, decision_note = $5
		WHERE id = $6 AND status = 'pending'
	`,
		o.Status,
		o.Total,
		o.ApprovedBy,
		o.ApprovedAt,
		o.DecisionNote,
		o.ID,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	for _, li := range o.Items {
		_, err = tx.ExecContext(ctx, `
			UPDATE order_items
			SET adjusted_quantity = $1, approved = $2, status = $3, total = $4
			WHERE order_id = $5 AND product_id = $6
		`,
			li.AdjustedQuantity,
			li.Approved,
			li.Status,
			li.Total,
			o.ID,
			li.ProductID,
		)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) RecordRejection(ctx context.Context, o *Order) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, rejected_by = $2, rejected_at = $3, decision_note = $4
		WHERE id = $5 AND status = 'pending'
	`,
		o.Status,
		o.RejectedBy,
		o.RejectedAt,
		o.DecisionNote,
		o.ID,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
