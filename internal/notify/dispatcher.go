package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fibertrail/fibertrail/internal/project"
)

// Store is the persistence surface the dispatcher needs.
type Store interface {
	Create(ctx context.Context, n Notification) (int64, error)
}

// Mailer queues an email copy of a notification. Implemented by the job
// client; a nil Mailer disables email delivery.
type Mailer interface {
	EnqueueNotificationEmail(ctx context.Context, recipientID int64, subject, body string) error
}

// Dispatcher delivers workflow notes best-effort. It satisfies the workflow's
// Notifier contract: delivery failures are logged and never surface to the
// transition that produced them.
type Dispatcher struct {
	store       Store
	mailer      Mailer
	cache       *CountCache
	logger      *slog.Logger
	frontendURL string
}

// NewDispatcher wires a dispatcher. frontendURL prefixes notification links
// in email bodies; mailer and cache may be nil.
func NewDispatcher(store Store, mailer Mailer, cache *CountCache, logger *slog.Logger, frontendURL string) *Dispatcher {
	return &Dispatcher{
		store:       store,
		mailer:      mailer,
		cache:       cache,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// Dispatch fans the notes out concurrently. It runs after the originating
// transaction has committed and must not inherit its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, actorID int64, notes ...project.Note) {
	if len(notes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var g errgroup.Group
	for _, note := range notes {
		g.Go(func() error {
			d.deliver(ctx, actorID, note)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, actorID int64, note project.Note) {
	n := Notification{
		RecipientID: note.RecipientID,
		CreatorID:   actorID,
		Title:       note.Title,
		Message:     note.Message,
		Type:        note.Kind,
	}
	if note.Link != "" {
		n.Link = &note.Link
	}
	if note.ProjectID != 0 {
		n.ProjectID = &note.ProjectID
	}
	if _, err := d.store.Create(ctx, n); err != nil {
		d.logger.Warn("notification insert failed",
			"recipient_id", note.RecipientID, "title", note.Title, "error", err)
	} else {
		d.cache.Invalidate(ctx, note.RecipientID)
	}
	if d.mailer == nil {
		return
	}
	body := fmt.Sprintf("%s\n", note.Message)
	if note.Link != "" {
		body = fmt.Sprintf("%s\n\n%s%s\n", note.Message, d.frontendURL, note.Link)
	}
	if err := d.mailer.EnqueueNotificationEmail(ctx, note.RecipientID, note.Title, body); err != nil {
		d.logger.Warn("notification email enqueue failed",
			"recipient_id", note.RecipientID, "title", note.Title, "error", err)
	}
}
