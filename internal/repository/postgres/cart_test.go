package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sneakrush/api/pkg/database"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

func newCartRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCartRepository(mock), mock
}

// --- Get Tests ---

func TestCartRepository_Get_WithItems(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	brand := "Nike"
	varID, prodID := "var-001", "prod-001"
	name, size := "Air Max 90", "42"
	price := int64(12999)
	qty, stock := 2, 5

	mock.ExpectQuery("SELECT c.id, c.created_at").
		WithArgs("user-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "created_at", "product_size_id", "product_id", "name", "brand",
			"size_label", "price_cents", "quantity", "stock_qty",
		}).AddRow("cart-001", now, &varID, &prodID, &name, &brand, &size, &price, &qty, &stock))

	cart, err := repo.Get(context.Background(), "user-001")
	require.NoError(t, err)

	assert.Equal(t, "cart-001", cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "var-001", cart.Items[0].ProductSizeID)
	assert.Equal(t, "Nike", cart.Items[0].Brand)
	assert.Equal(t, int64(25998), cart.SubtotalCents)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Get_NoCartRow(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectQuery("SELECT c.id, c.created_at").
		WithArgs("user-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "created_at", "product_size_id", "product_id", "name", "brand",
			"size_label", "price_cents", "quantity", "stock_qty",
		}))

	cart, err := repo.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, "user-001", cart.UserID)
	assert.Empty(t, cart.Items)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Get_CartWithNoLines(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)

	// LEFT JOIN yields one row with NULL item columns.
	mock.ExpectQuery("SELECT c.id, c.created_at").
		WithArgs("user-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "created_at", "product_size_id", "product_id", "name", "brand",
			"size_label", "price_cents", "quantity", "stock_qty",
		}).AddRow("cart-001", now, nil, nil, nil, nil, nil, nil, nil, nil))

	cart, err := repo.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, "cart-001", cart.ID)
	assert.Empty(t, cart.Items)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- AddItem Tests ---

func TestCartRepository_AddItem_NewLine(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-001").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}).AddRow(5))
	mock.ExpectQuery("SELECT quantity FROM cart_items").
		WithArgs("cart-001", "var-001").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-001", "var-001", 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.AddItem(context.Background(), "user-001", "var-001", 2)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddItem_CombinesWithExistingLine(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-001").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}).AddRow(5))
	mock.ExpectQuery("SELECT quantity FROM cart_items").
		WithArgs("cart-001", "var-001").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(2))
	// a then b yields a single line holding a+b.
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-001", "var-001", 5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.AddItem(context.Background(), "user-001", "var-001", 3)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddItem_VariantNotFound(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-404").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}))
	mock.ExpectRollback()

	err := repo.AddItem(context.Background(), "user-001", "var-404", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddItem_InsufficientStock(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-001").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}).AddRow(3))
	mock.ExpectQuery("SELECT quantity FROM cart_items").
		WithArgs("cart-001", "var-001").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectRollback()

	// 2 in cart + 2 requested > 3 in stock.
	err := repo.AddItem(context.Background(), "user-001", "var-001", 2)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- SetItemQuantity Tests ---

func TestCartRepository_SetItemQuantity_Replaces(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-001").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}).AddRow(10))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-001", "var-001", 7).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.SetItemQuantity(context.Background(), "user-001", "var-001", 7)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_SetItemQuantity_ZeroDeletes(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("user-001", "var-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.SetItemQuantity(context.Background(), "user-001", "var-001", 0)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_SetItemQuantity_InsufficientStock(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cart-001"))
	mock.ExpectQuery("SELECT stock_qty FROM product_sizes").
		WithArgs("var-001").
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.SetItemQuantity(context.Background(), "user-001", "var-001", 4)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- RemoveItem / Clear / CountItems Tests ---

func TestCartRepository_RemoveItem_Removed(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("user-001", "var-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	removed, err := repo.RemoveItem(context.Background(), "user-001", "var-001")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_RemoveItem_Absent(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("user-001", "var-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	removed, err := repo.RemoveItem(context.Background(), "user-001", "var-404")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Clear(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("user-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err := repo.Clear(context.Background(), "user-001")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_CountItems(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("user-001").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(5))

	count, err := repo.CountItems(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_CountItems_QueryError(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("user-001").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.CountItems(context.Background(), "user-001")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
