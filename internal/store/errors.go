package store

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the lifecycle engine and recycle bin. Callers
// match with errors.Is; messages carry the operation context.
var (
	// ErrNotFound means the item id has no item row.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidTransition means the requested phase change is not legal
	// from the item's current state.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrTransactionFailed means the storage layer failed to commit,
	// including write-write conflicts. The engine never retries; callers
	// may.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConstraintViolation means a write would break a schema constraint,
	// e.g. a duplicate active state for the same (item, phase).
	ErrConstraintViolation = errors.New("constraint violation")
)

// classify maps a storage error onto one of the engine error kinds.
// SQLite reports lock contention as "busy"/"locked" and index violations
// as "constraint"; everything else stays a plain transaction failure.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"):
		return fmt.Errorf("%s: %w: %v", op, ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrTransactionFailed, err)
	}
}
