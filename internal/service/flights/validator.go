package flights

import (
	"context"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
)

type OverlapFinder interface {
	FindOverlapping(ctx context.Context, airplaneID int64, w domain.Window, excludeID int64) ([]int64, error)
}

// ValidateNoOverlap checks the window itself and then looks for another
// flight of the same airplane sharing any instant with it. excludeID is the
// flight being updated, or 0.
func ValidateNoOverlap(ctx context.Context, finder OverlapFinder, airplaneID int64, w domain.Window, excludeID int64, now time.Time, requireFuture bool) error {
	if err := domain.ValidateWindow(w, now, requireFuture); err != nil {
		return err
	}

	ids, err := finder.FindOverlapping(ctx, airplaneID, w, excludeID)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return domain.ScheduleConflictError()
	}
	return nil
}
