package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/pagination"
)

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:settlement_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Transaction{}, &models.TransactionItem{}, &models.PaymentDetail{}))
	return db
}

func seedTransaction(t *testing.T, repo Repository, orderNumber int64, createdAt time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		ID:          uuid.New(),
		OrderNumber: orderNumber,
		Subtotal:    decimal.NewFromFloat(10),
		Discount:    decimal.Zero,
		Tax:         decimal.NewFromFloat(0.8),
		Total:       decimal.NewFromFloat(10.8),
		Cashier:     "jo",
		CreatedAt:   createdAt,
		Items: []models.TransactionItem{{
			ID:        uuid.New(),
			ProductID: uuid.New(),
			Name:      "americano",
			UnitPrice: decimal.NewFromFloat(5),
			Quantity:  2,
			LineTotal: decimal.NewFromFloat(10),
		}},
		Payments: []models.PaymentDetail{{
			ID:         uuid.New(),
			MethodID:   "cash",
			MethodName: "Cash",
			Amount:     decimal.NewFromFloat(10.8),
		}},
	}
	require.NoError(t, repo.Append(context.Background(), tx))
	return tx
}

func TestRepositoryAppendAndFind(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	seeded := seedTransaction(t, repo, 1, time.Now())

	found, err := repo.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), found.OrderNumber)
	assert.Len(t, found.Items, 1)
	assert.Len(t, found.Payments, 1)
	assert.Equal(t, "americano", found.Items[0].Name)
	assert.True(t, found.Total.Equal(decimal.NewFromFloat(10.8)))
}

func TestRepositoryFindMissing(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := NewRepository(newRepoTestDB(t))
	base := time.Now().Add(-time.Hour)
	seedTransaction(t, repo, 1, base)
	seedTransaction(t, repo, 2, base.Add(time.Minute))
	seedTransaction(t, repo, 3, base.Add(2*time.Minute))

	page, next, err := repo.List(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].OrderNumber)
	assert.Equal(t, int64(2), page[1].OrderNumber)
	require.NotEmpty(t, next)

	rest, last, err := repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(1), rest[0].OrderNumber)
	assert.Empty(t, last)
}

func TestRepositoryReplaceTransactions(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	seedTransaction(t, repo, 1, time.Now())
	seedTransaction(t, repo, 2, time.Now())

	incoming := []models.Transaction{{
		ID:          uuid.New(),
		OrderNumber: 9,
		Subtotal:    decimal.NewFromFloat(4),
		Discount:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.NewFromFloat(4),
		Cashier:     "hub",
	}}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).ReplaceTransactions(context.Background(), incoming)
	}))

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(9), all[0].OrderNumber)
}
