package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

func newDBWithMock(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, database.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	return NewWithDB(database, time.Second), mock
}

func TestFindAllCats(t *testing.T) {
	db, mock := newDBWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "name", "age"}).
		AddRow(int64(1), "Tom", 3).
		AddRow(int64(2), "Felix", 5)
	mock.ExpectQuery(`^SELECT id, name, age FROM cats ORDER BY id$`).WillReturnRows(rows)

	cats, err := db.FindAllCats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Cat{{ID: 1, Name: "Tom", Age: 3}, {ID: 2, Name: "Felix", Age: 5}}, cats)
}

func TestFindAllCatsEmpty(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`^SELECT id, name, age FROM cats`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}))

	cats, err := db.FindAllCats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cats, "an empty table should render as an empty list, not null")
	assert.Empty(t, cats)
}

func TestFindCatByID(t *testing.T) {
	db, mock := newDBWithMock(t)

	q := regexp.QuoteMeta(`SELECT id, name, age FROM cats WHERE id = $1`)
	mock.ExpectQuery(q).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(7), "Tom", 3))
	mock.ExpectQuery(q).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	cat, err := db.FindCatByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.Cat{ID: 7, Name: "Tom", Age: 3}, *cat)

	_, err = db.FindCatByID(context.Background(), 8)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateCat(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO cats (name, age) VALUES ($1, $2) RETURNING id, name, age`)).
		WithArgs("Tom", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), "Tom", 3))

	cat, err := db.CreateCat(context.Background(), "Tom", 3)
	require.NoError(t, err)
	assert.Equal(t, models.Cat{ID: 1, Name: "Tom", Age: 3}, *cat)
}

func TestUpdateCatPartial(t *testing.T) {
	db, mock := newDBWithMock(t)

	q := `(?s)^\s*UPDATE\s+cats\s+SET\s+name\s*=\s*COALESCE\(\$2::text,\s*name\),\s*age\s*=\s*COALESCE\(\$3::integer,\s*age\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,\s*name,\s*age\s*$`
	mock.ExpectQuery(q).
		WithArgs(int64(1), nil, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), "Tom", 4))

	age := 4
	cat, err := db.UpdateCat(context.Background(), 1, models.CatPatch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, models.Cat{ID: 1, Name: "Tom", Age: 4}, *cat)
}

func TestUpdateCatNotFound(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE\s+cats`).
		WithArgs(int64(9), "Tom", nil).
		WillReturnError(sql.ErrNoRows)

	name := "Tom"
	_, err := db.UpdateCat(context.Background(), 9, models.CatPatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteCat(t *testing.T) {
	db, mock := newDBWithMock(t)

	q := regexp.QuoteMeta(`DELETE FROM cats WHERE id = $1`)
	mock.ExpectExec(q).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.DeleteCat(context.Background(), 1))
	assert.ErrorIs(t, db.DeleteCat(context.Background(), 1), models.ErrNotFound)
}

func TestDeleteCatDBError(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectExec(`DELETE FROM cats`).WithArgs(int64(1)).WillReturnError(errors.New("db down"))

	err := db.DeleteCat(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestFindUserByEmail(t *testing.T) {
	db, mock := newDBWithMock(t)

	q := regexp.QuoteMeta(`SELECT id, email, name, hash FROM users WHERE email = $1`)
	mock.ExpectQuery(q).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "hash"}).
			AddRow(int64(1), "admin@example.com", "ADMIN", "$2a$10$hash"))
	mock.ExpectQuery(q).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	usr, err := db.FindUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: 1, Email: "admin@example.com", Name: "ADMIN", Hash: "$2a$10$hash"}, *usr)

	_, err = db.FindUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	count, err := db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCreateUser(t *testing.T) {
	db, mock := newDBWithMock(t)

	q := regexp.QuoteMeta(`INSERT INTO users (email, name, hash) VALUES ($1, $2, $3) RETURNING id`)
	mock.ExpectQuery(q).
		WithArgs("admin@example.com", "ADMIN", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(q).
		WithArgs("admin@example.com", "ADMIN", "hash").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, Message: "duplicate key value"})

	usr := &models.User{Email: "admin@example.com", Name: "ADMIN", Hash: "hash"}

	created, err := db.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(0), usr.ID, "the input record should not be mutated")

	_, err = db.CreateUser(context.Background(), usr)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestPing(t *testing.T) {
	db, mock := newDBWithMock(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, db.Ping(context.Background()))
	assert.Error(t, db.Ping(context.Background()))
}
