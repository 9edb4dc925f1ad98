package purchase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bonstock-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Insert(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
	GetByOrderID(ctx context.Context, orderID string) (*Purchase, error)

	// UpdateStatus moves the record from -> to; false means the record was
	// not in the expected state (lost race or diverged pipeline).
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// MarkLineReceived flips the per-line received flag; false means the
	// line was already received (double reception guard).
	MarkLineReceived(ctx context.Context, lineID string) (bool, error)

	SetDelivered(ctx context.Context, id string, at time.Time) error
	SetSupplier(ctx context.Context, id, supplier, paymentMethod string, expectedAt *time.Time) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, p *Purchase) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertPurchase"),
		zap.String("purchase_id", p.ID),
		zap.String("order_id", p.OrderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (
			id, order_id, supplier, payment_method,
			status, expected_at, delivered_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		p.ID,
		p.OrderID,
		p.Supplier,
		p.PaymentMethod,
		p.Status,
		p.ExpectedAt,
		p.DeliveredAt,
		p.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert purchase", zap.Error(err))
		return err
	}

	for _, line := range p.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_lines (
				id, purchase_id, product_id, name, unit, quantity, price, received
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			line.ID,
			p.ID,
			line.ProductID,
			line.Name,
			line.Unit,
			line.Quantity,
			line.Price,
			line.Received,
		)
		if err != nil {
			log.Error("failed to insert purchase line",
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Purchase, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*Purchase, error) {
	return r.getOne(ctx, `WHERE order_id = $1`, orderID)
}

func (r *repository) getOne(ctx context.Context, where string, arg any) (*Purchase, error) {
	var p Purchase
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, supplier, payment_method, status, expected_at, delivered_at, created_at
		FROM purchases
	`+where, arg).Scan(
		&p.ID,
		&p.OrderID,
		&p.Supplier,
		&p.PaymentMethod,
		&p.Status,
		&p.ExpectedAt,
		&p.DeliveredAt,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, unit, quantity, price, received
		FROM purchase_lines
		WHERE purchase_id = $1
		ORDER BY id
	`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&line.Name,
			&line.Unit,
			&line.Quantity,
			&line.Price,
			&line.Received,
		); err != nil {
			return nil, err
		}
		p.Lines = append(p.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchases
		SET status = $1
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) MarkLineReceived(ctx context.Context, lineID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchase_lines
		SET received = TRUE
		WHERE id = $1 AND received = FALSE
	`, lineID)
	if err != nil {
		return false, err
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) SetDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchases
		SET status = $1, delivered_at = $2
		WHERE id = $3
	`, StatusDelivered, at, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *repository) SetSupplier(ctx context.Context, id, supplier, paymentMethod string, expectedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchases
		SET supplier = $1, payment_method = $2, expected_at = $3
		WHERE id = $4
	`, supplier, paymentMethod, expectedAt, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}
