package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DerivesCategorySeverityRetryable(t *testing.T) {
	err := New(ErrCodeStoreBusy, "database is locked", nil)
	assert.Equal(t, CategoryStore, err.Category)
	assert.True(t, err.Retryable)
	assert.Equal(t, SeverityWarning, err.Severity)
}

func TestNew_FatalCode(t *testing.T) {
	err := New(ErrCodeSchemaMismatch, "schema version mismatch", nil)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.False(t, err.Retryable)
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestSearchError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeInvalidQuery, "empty query", nil)
	b := New(ErrCodeInvalidQuery, "different message", nil)
	assert.True(t, errors.Is(a, b))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "dims differ", nil).
		WithDetail("expected", "256").
		WithSuggestion("re-run index with matching embed_dim")
	assert.Equal(t, "256", err.Details["expected"])
	assert.Contains(t, err.Suggestion, "embed_dim")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeStoreBusy, "busy", nil)))
	assert.False(t, IsRetryable(New(ErrCodeInternal, "boom", nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeQueryEmpty, GetCode(New(ErrCodeQueryEmpty, "empty", nil)))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
