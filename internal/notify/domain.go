package notify

import "time"

// Kind classifies a notification for the frontend.
const (
	KindInfo    = "info"
	KindSuccess = "success"
	KindWarning = "warning"
	KindError   = "error"
)

// Notification is an in-app message produced as a side effect of a workflow
// transition. The engine never reads these back.
type Notification struct {
	ID          int64
	RecipientID int64
	CreatorID   int64
	Title       string
	Message     string
	Type        string
	IsRead      bool
	Link        *string
	ProjectID   *int64
	CreatedAt   time.Time
}
