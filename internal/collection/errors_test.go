package collection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	fetch := NewFetchError("sales", 15, cause)
	assert.Equal(t, "FETCH_FAILED: could not load records (table=sales, offset=15): connection refused", fetch.Error())
	assert.ErrorIs(t, fetch, cause)

	val := NewValidationError("sales", "record 3: name is required")
	assert.Equal(t, "VALIDATION_FAILED: record 3: name is required (table=sales)", val.Error())
	assert.Equal(t, "VALIDATION_FAILED", val.ErrorCode())
}

func TestErrorPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("browse: %w", NewSaveError("inventory", errors.New("conflict")))

	assert.True(t, IsSaveError(wrapped))
	assert.False(t, IsFetchError(wrapped))
	assert.False(t, IsValidationError(wrapped))
	assert.False(t, IsFetchError(errors.New("plain")))
}
