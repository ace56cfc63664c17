package postgresql

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

func createQueryError(err error) error {
	return fmt.Errorf("failed to create query: %w", err)
}

func executeQueryError(err error) error {
	if unavailable(err) {
		return fmt.Errorf("%w: failed to execute query: %w", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("failed to execute query: %w", err)
}

func scanRowError(err error) error {
	return fmt.Errorf("failed to scan row: %w", err)
}

func collectRowsError(err error) error {
	if unavailable(err) {
		return fmt.Errorf("%w: failed to collect rows: %w", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("failed to collect rows: %w", err)
}

// unavailable reports errors caused by the connection rather than the query.
func unavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
