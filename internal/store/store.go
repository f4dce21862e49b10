package store

import (
	"database/sql"
	"errors"
	"log/slog"
)

// ErrNotFound is returned by update and delete operations that matched no row.
var ErrNotFound = errors.New("not found")

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
