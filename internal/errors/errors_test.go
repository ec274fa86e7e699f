package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NotFound("job not found")
		assert.Equal(t, "job not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("row missing")
		err := Wrap(cause, ErrCodeNotFound, "job not found")
		assert.Equal(t, "job not found: row missing", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "provisioning failed")

	require.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &appErr)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found matches", NotFoundf("job %s not found", "j1"), IsNotFound, true},
		{"conflict matches", Conflictf("tenant %s already has an active job", "t1"), IsConflict, true},
		{"validation matches", ValidationField("slug", "required"), IsValidation, true},
		{"wrapped code matches", fmt.Errorf("ctx: %w", Conflict("dup")), IsConflict, true},
		{"wrong code", Internal("boom"), IsNotFound, false},
		{"plain error", stderrors.New("plain"), IsConflict, false},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(Validation("bad")))
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
}
