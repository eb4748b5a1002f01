package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Newf(KindInsufficientStock, "insufficient stock for product %s", "abc")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "insufficient stock for product abc", err.Error())

	wrapped := fmt.Errorf("posting: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))
	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
}

func TestStoreHidesCause(t *testing.T) {
	cause := errors.New(`pq: relation "documents" does not exist`)
	err := Store(cause)

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.NotContains(t, err.Error(), "relation")
	assert.True(t, errors.Is(err, cause), "cause stays reachable for logging")
}

func TestStoreKeepsClassifiedErrors(t *testing.T) {
	err := Store(ErrAlreadyOpen)
	assert.Equal(t, KindAlreadyOpen, KindOf(err))
	assert.Nil(t, Store(nil))
}

func TestStoreTimeout(t *testing.T) {
	err := Store(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Equal(t, "data store timed out", err.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindStoreUnavailable, KindOf(errors.New("boom")))
}
