package store

import (
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// classify turns a driver error into a coded bracket error. Lock and
// serialization failures become StorageConflict so callers can retry them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var coded *bracket.Error
	if errors.As(err, &coded) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return bracket.WrapError(bracket.CodeNotFound, op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return bracket.WrapError(bracket.CodeStorageConflict, op, err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40xxx: serialization failure, deadlock. 55P03: lock_not_available.
		if pqErr.Code.Class() == "40" || pqErr.Code == "55P03" {
			return bracket.WrapError(bracket.CodeStorageConflict, op, err)
		}
	}

	return bracket.WrapError(bracket.CodeStorageFailure, op, err)
}
