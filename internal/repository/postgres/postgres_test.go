package postgres

import (
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketGo/pkg/database"
)

// setupMock creates a pgxmock pool for repository tests.
func setupMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

// uniqueViolation mimics the error pgx surfaces for a unique constraint hit.
var uniqueViolation = errors.New(`ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)`)
