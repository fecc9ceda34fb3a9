package repo

import (
	"context"
	"database/sql"
)

func FindCatName(ctx context.Context, db *sql.DB, id int64) (name string, err error) {
	err = db.QueryRowContext(ctx, "SELECT name FROM cats WHERE id = $1", id).Scan(&name)
	return name, err
}
