package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")

	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Contains(t, err.Error(), "bad input")
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, ErrorTypeConnection, "fetch failed")

	assert.Equal(t, ErrorTypeConnection, err.Type)
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeAuthentication, "denied")

	assert.True(t, IsType(err, ErrorTypeAuthentication))
	assert.False(t, IsType(err, ErrorTypeFetch))
	assert.False(t, IsType(nil, ErrorTypeFetch))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeFetch))

	// Wrapping with fmt keeps the type reachable.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeAuthentication))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeStorage, "write failed").
		WithDetail("path", "/tmp/out.parquet").
		WithDetail("rows", 42)

	require.NotNil(t, err.Details)
	assert.Equal(t, "/tmp/out.parquet", err.Details["path"])
	assert.Equal(t, 42, err.Details["rows"])
}
