package memory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("syntax error at or near SELECT")))
	assert.False(t, IsTransient(&ContractViolationError{Violations: []string{"agent must be a non-empty string"}}))

	assert.True(t, IsTransient(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(fmt.Errorf("recall: %w", errors.New("connection reset by peer"))))

	assert.True(t, IsTransient(&StoreError{Store: "structured", Op: "insert", Err: errors.New("whatever"), Transient: true}))
	assert.False(t, IsTransient(&StoreError{Store: "structured", Op: "insert", Err: errors.New("connection refused"), Transient: false}))
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("boom")

	storeErr := &StoreError{Store: "vector", Op: "add", Err: cause}
	assert.ErrorIs(t, storeErr, cause)

	coordErr := &CoordinatorError{Op: "decay_memory", Err: storeErr}
	assert.ErrorIs(t, coordErr, cause)

	var inner *StoreError
	assert.ErrorAs(t, coordErr, &inner)
	assert.Equal(t, "vector", inner.Store)
}
