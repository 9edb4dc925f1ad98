package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		rows := sqlmock.NewRows([]string{
			"product_id", "name", "category", "unit", "quantity", "threshold", "status", "updated_at",
		}).AddRow("p1", "Olive oil", "pantry", "btl", 12, 10, "normal", time.Now())

		mock.ExpectQuery(`SELECT .* FROM inventory_items\s+WHERE product_id = \$1`).
			WithArgs("p1").
			WillReturnRows(rows)

		item, err := repo.GetItem(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Olive oil", item.Name)
		assert.Equal(t, 12, item.Quantity)
		assert.Equal(t, StockNormal, item.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM inventory_items`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

		_, err = repo.GetItem(ctx, "ghost")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestRepository_CreateItem(t *testing.T) {
	ctx := context.Background()
	item := &Item{
		ProductID: "p1", Name: "Rice", Category: "pantry", Unit: "kg",
		Quantity: 0, Threshold: 10, Status: StockOut, UpdatedAt: time.Now(),
	}

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectExec(`INSERT INTO inventory_items`).
			WithArgs(item.ProductID, item.Name, item.Category, item.Unit, item.Quantity, item.Threshold, string(item.Status), item.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.CreateItem(ctx, item))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectExec(`INSERT INTO inventory_items`).WillReturnError(errors.New("db error"))
		assert.Error(t, repo.CreateItem(ctx, item))
	})
}

func TestRepository_ListItems(t *testing.T) {
	ctx := context.Background()

	t.Run("All", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		rows := sqlmock.NewRows([]string{
			"product_id", "name", "category", "unit", "quantity", "threshold", "status", "updated_at",
		}).
			AddRow("p1", "Flour", "pantry", "kg", 3, 10, "low", time.Now()).
			AddRow("p2", "Salt", "pantry", "kg", 40, 10, "normal", time.Now())

		mock.ExpectQuery(`(?s)SELECT .* FROM inventory_items\s+ORDER BY name`).
			WillReturnRows(rows)

		items, err := repo.ListItems(ctx, nil)
		assert.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("FilteredByStatus", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		low := StockLow
		rows := sqlmock.NewRows([]string{
			"product_id", "name", "category", "unit", "quantity", "threshold", "status", "updated_at",
		}).AddRow("p1", "Flour", "pantry", "kg", 3, 10, "low", time.Now())

		mock.ExpectQuery(`(?s)SELECT .* FROM inventory_items\s+WHERE status = \$1`).
			WithArgs(string(low)).
			WillReturnRows(rows)

		items, err := repo.ListItems(ctx, &low)
		assert.NoError(t, err)
		if assert.Len(t, items, 1) {
			assert.Equal(t, StockLow, items[0].Status)
		}
	})
}

func TestRepository_UpdateItemQuantity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectExec(`UPDATE inventory_items`).
			WithArgs(7, string(StockLow), now, "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateItemQuantity(ctx, "p1", 7, StockLow, now))
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectExec(`UPDATE inventory_items`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.UpdateItemQuantity(ctx, "ghost", 7, StockLow, now)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestRepository_InsertMovement(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	ref := "purchase-1"
	m := &Movement{
		ID: "m-1", ProductID: "p1", Type: MovementIn, Quantity: 5,
		CreatedBy: "u1", Reference: &ref, CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(m.ID, m.ProductID, string(m.Type), m.Quantity, m.CreatedBy, &ref, nil, m.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.InsertMovement(ctx, m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListMovements(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "product_id", "type", "quantity", "created_by", "reference", "note", "created_at",
	}).
		AddRow("m-1", "p1", "in", 12, "u1", "purchase-1", nil, time.Now()).
		AddRow("m-2", "p1", "out", 5, "u2", nil, "retail sale", time.Now())

	mock.ExpectQuery(`(?s)SELECT .* FROM stock_movements\s+WHERE product_id = \$1\s+ORDER BY created_at ASC`).
		WithArgs("p1").
		WillReturnRows(rows)

	movements, err := repo.ListMovements(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, movements, 2)

	require.NotNil(t, movements[0].Reference)
	assert.Equal(t, "purchase-1", *movements[0].Reference)
	assert.Nil(t, movements[0].Note)

	assert.Nil(t, movements[1].Reference)
	require.NotNil(t, movements[1].Note)
	assert.Equal(t, "retail sale", *movements[1].Note)

	// Oldest-first history folds back to the cached quantity.
	assert.Equal(t, 7, Replay(0, movements))
}
