package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrail/fibertrail/internal/shared"
)

func TestClassifyTxError(t *testing.T) {
	serErr := &pgconn.PgError{
		Code:    serializationFailure,
		Message: "could not serialize access due to concurrent update",
	}

	// The race loser gets a conflict, not an internal error.
	err := classifyTxError(serErr)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// Wrapped along the way, still classified.
	err = classifyTxError(fmt.Errorf("platform/db: commit tx: %w", serErr))
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// Other database errors pass through untouched.
	dupErr := &pgconn.PgError{Code: "23505"}
	err = classifyTxError(dupErr)
	require.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrConflict))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	plain := errors.New("boom")
	assert.Equal(t, plain, classifyTxError(plain))
}
