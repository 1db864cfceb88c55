package notifications

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/repositories"
)

// Cursors encode the (createdAt, id) position of the last item of a page.
// The id tie-break keeps pagination stable even for notifications created
// within the same instant.

func encodeCursor(createdAt time.Time, id uint) string {
	raw := fmt.Sprintf("%d|%d", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor parses an opaque cursor. A malformed cursor is treated as
// absent, restarting the listing from the newest item.
func decodeCursor(cursor string) *repositories.NotificationCursor {
	if cursor == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	return &repositories.NotificationCursor{
		CreatedAt: time.Unix(0, nanos),
		ID:        uint(id),
	}
}
