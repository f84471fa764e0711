package errors

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	wrapped := Wrapf(sql.ErrNoRows, "failed to load product %d", 42)

	assert.Contains(t, wrapped.Error(), "failed to load product 42")
	assert.True(t, Is(wrapped, sql.ErrNoRows))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("match for product %d", 7)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "match for product 7")
	assert.False(t, IsConfig(err))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("batch_size must be >= 1, got %d", 0)

	assert.True(t, IsConfig(err))
	assert.Equal(t, "batch_size must be >= 1, got 0", err.Error())

	wrapped := Wrap(err, "invalid configuration")
	assert.True(t, IsConfig(wrapped))
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := WithHint(New("missing api key"), "set HTSMATCH_ANTHROPIC_API_KEY")
	err = Wrap(err, "startup")

	assert.Equal(t, []string{"set HTSMATCH_ANTHROPIC_API_KEY"}, GetAllHints(err))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidRequest, ErrConfig, ErrNotConfirmed, ErrUnavailable}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestNilHelpers(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsConfig(nil))
}
