package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timetrail/timetrail/internal/repository"
)

// mapStorageErr translates driver-level failures into the repository's
// sentinel errors so callers can classify retryability without knowing the
// storage engine. modernc.org/sqlite surfaces result codes in the error
// text, so the mapping sniffs strings the same way constraint checks do.
func mapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, repository.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "table is locked") || strings.Contains(msg, "sqlite_locked"):
		return fmt.Errorf("%s: %w: %v", op, repository.ErrLocked, err)
	case strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy"):
		return fmt.Errorf("%s: %w: %v", op, repository.ErrBusy, err)
	case strings.Contains(msg, "disk is full") || strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "sqlite_full"):
		return fmt.Errorf("%s: %w: %v", op, repository.ErrDiskFull, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
