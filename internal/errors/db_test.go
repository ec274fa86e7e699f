package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapDBError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapDBError(pgx.ErrNoRows)
		assert.True(t, IsNotFound(err))
	})

	t.Run("deadline maps to timeout", func(t *testing.T) {
		err := MapDBError(context.DeadlineExceeded)
		assert.True(t, IsTimeout(err))
	})

	t.Run("cancellation maps to canceled", func(t *testing.T) {
		err := MapDBError(context.Canceled)
		assert.True(t, IsCanceled(err))
	})

	t.Run("unrecognized error passes through", func(t *testing.T) {
		orig := stderrors.New("network hiccup")
		assert.Equal(t, orig, MapDBError(orig))
	})
}

func TestMapDBError_PgErrors(t *testing.T) {
	t.Run("unique violation with detail", func(t *testing.T) {
		err := MapDBError(&pgconn.PgError{
			Code:   pgerrcode.UniqueViolation,
			Detail: `Key (slug)=(acme) already exists.`,
		})

		require.True(t, IsConflict(err))
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "slug", appErr.Field)
	})

	t.Run("unique violation infers field from constraint", func(t *testing.T) {
		err := MapDBError(&pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: "tenants_slug_key",
		})

		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "slug", appErr.Field)
	})

	t.Run("not null violation maps to validation", func(t *testing.T) {
		err := MapDBError(&pgconn.PgError{
			Code:       pgerrcode.NotNullViolation,
			ColumnName: "tenant_id",
		})

		require.True(t, IsValidation(err))
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "tenant_id", appErr.Field)
	})

	t.Run("unhandled pg error maps to internal", func(t *testing.T) {
		err := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})
}
