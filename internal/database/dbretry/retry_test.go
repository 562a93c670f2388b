package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lunalog/lunalog/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConstraint = errors.New("UNIQUE constraint failed: users.user_id")

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	assert.False(t, dbretry.IsRetryableError(nil))
	assert.False(t, dbretry.IsRetryableError(errConstraint))
	assert.True(t, dbretry.IsRetryableError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, dbretry.IsRetryableError(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, dbretry.IsRetryableError(errors.New("read tcp: connection reset by peer")))
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := dbretry.Operation(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errConstraint
	})

	require.ErrorIs(t, err, errConstraint)
	assert.Equal(t, 1, calls)
}

func TestNoResultRetriesTransientError(t *testing.T) {
	t.Parallel()

	calls := 0
	err := dbretry.NoResult(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
