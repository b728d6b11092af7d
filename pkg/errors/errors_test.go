package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NewNotFound("clinic", nil), http.StatusNotFound},
		{"validation", NewValidation("invalid", map[string]string{"email": "bad"}), http.StatusBadRequest},
		{"conflict", NewConflict("taken", nil), http.StatusConflict},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"unauthorized", Unauthorized(nil), http.StatusUnauthorized},
		{"internal", NewInternal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAs_WrappedError(t *testing.T) {
	base := NewConflict("slug taken", nil)
	wrapped := fmt.Errorf("create clinic: %w", base)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, base, appErr)
	assert.True(t, IsCode(wrapped, ErrConflict))
	assert.False(t, IsCode(wrapped, ErrNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrConflict))
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewBadRequest("bad csv", fmt.Errorf("line 3"))
	assert.Equal(t, "bad csv: line 3", err.Error())
	assert.Equal(t, "clinic not found", NewNotFound("clinic", nil).Error())
}
