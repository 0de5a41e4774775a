package memory

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ContractViolationError reports a malformed write payload. It is raised
// before any store is touched and is never retried.
type ContractViolationError struct {
	Violations []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation: %s", strings.Join(e.Violations, "; "))
}

// StoreError wraps a failure from one of the backing stores. Transient
// connectivity failures are retried; everything else surfaces immediately.
type StoreError struct {
	Store     string
	Op        string
	Err       error
	Transient bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CoordinatorError wraps a total failure of a coordinator operation after
// retries exhaust. An audit error event was already attempted by the time
// the caller sees one.
type CoordinatorError struct {
	Op  string
	Err error
}

func (e *CoordinatorError) Error() string {
	return fmt.Sprintf("memory coordinator %s: %v", e.Op, e.Err)
}

func (e *CoordinatorError) Unwrap() error {
	return e.Err
}

// IsTransient classifies an error as a retryable connectivity failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"timed out",
		"temporarily unavailable",
		"no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
