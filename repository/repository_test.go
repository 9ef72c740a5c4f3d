package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"dashboard-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHasRows(t *testing.T) {
	for _, want := range []bool{true, false} {
		gormDB, mock := setupMockDB(t)
		store := repository.NewGormSeedStore(gormDB)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM "catalog_items")`)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := store.HasRows(context.Background(), "catalog_items")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestHasRows_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormSeedStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WillReturnError(errors.New("relation does not exist"))

	_, err := store.HasRows(context.Background(), "orders")
	assert.ErrorContains(t, err, "check rows in orders")
}

func TestExec_ScriptIsSentVerbatim(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormSeedStore(gormDB)

	script := "INSERT INTO orders (id, address_country) VALUES\n(1, 'What?');"
	mock.ExpectExec(regexp.QuoteMeta(script)).
		WithoutArgs().
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Exec(context.Background(), script))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExec_BindsArgs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormSeedStore(gormDB)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (id,units) VALUES ($1,$2),($3,$4)`)).
		WithArgs(1, 2, 3, 4).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.Exec(context.Background(), "INSERT INTO order_items (id,units) VALUES (?,?),(?,?)", 1, 2, 3, 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExec_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormSeedStore(gormDB)

	mock.ExpectExec("INSERT").WillReturnError(errors.New("duplicate key"))

	err := store.Exec(context.Background(), "INSERT INTO orders VALUES (1);")
	assert.ErrorContains(t, err, "duplicate key")
}

func TestFindByDescription(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCatalogRepository(gormDB)

	rows := sqlmock.NewRows([]string{"id", "catalog_brand_id", "description", "price", "picture_uri", "tags_json"}).
		AddRow(1, 2, "Red mug", 9.5, "http://img/1", `{"productId":1,"color":["red"]}`)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "catalog_items" WHERE description ILIKE $1 ORDER BY id`)).
		WithArgs(`%50\% mug%`).
		WillReturnRows(rows)

	items, err := repo.FindByDescription(context.Background(), "50% mug")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Red mug", items[0].Description)
	assert.Equal(t, `{"productId":1,"color":["red"]}`, items[0].TagsJSON)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByDescription_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCatalogRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "catalog_items"`)).
		WillReturnError(errors.New("timeout"))

	items, err := repo.FindByDescription(context.Background(), "mug")
	assert.Error(t, err)
	assert.Nil(t, items)
}
