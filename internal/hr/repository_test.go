package hr

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapConstraint(t *testing.T) {
	require.ErrorIs(t, mapConstraint(&pgconn.PgError{Code: "23505"}), ErrDuplicate)
	require.ErrorIs(t, mapConstraint(&pgconn.PgError{Code: "23503"}), ErrInvalidInput,
		"foreign-key violations are validation failures, not server errors")

	other := &pgconn.PgError{Code: "42P01"}
	require.Equal(t, error(other), mapConstraint(other))
	require.NoError(t, mapConstraint(nil))
}
