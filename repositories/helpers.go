package repositories

import (
	"database/sql"
	"fmt"
)

// requireAffectedRows возвращает notFoundErr, если запрос не затронул ни одной строки.
func requireAffectedRows(result sql.Result, notFoundErr error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return notFoundErr
	}
	return nil
}
