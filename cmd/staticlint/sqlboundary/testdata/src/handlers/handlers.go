package handlers

import (
	"context"
	"database/sql"
)

type cat struct {
	name string
}

func (c cat) Exec() string { return c.name }

func listCats(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT id FROM cats") // want `SQL call QueryContext outside internal/db, use a repository`
	if err != nil {
		return err
	}
	defer rows.Close()

	return rows.Err()
}

func deleteCat(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cats WHERE id = $1", id) // want `SQL call ExecContext outside internal/db, use a repository`
	return err
}

func countCats(db *sql.DB) (count int64, err error) {
	err = db.QueryRow("SELECT COUNT(*) FROM cats").Scan(&count) // want `SQL call QueryRow outside internal/db, use a repository`
	return count, err
}

func notSQL() string {
	return cat{name: "Tom"}.Exec()
}
