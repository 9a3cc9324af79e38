package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationReceived is emitted on the event bus after an application row
// has been committed. Delivery to the notification webhook is best effort
// and never affects the submission response.
type ApplicationReceived struct {
	EventID       uuid.UUID
	ApplicationID int64
	JobID         int64 // Listing.PostID

	ReceivedAt time.Time
}
