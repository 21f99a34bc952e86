// Package notify records notifications and pushes them to subscribers.
package notify

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/erazemk/storekeeper/internal/events"
	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/store"
)

// Notifier stores notifications and publishes each new one.
type Notifier struct {
	db        *sql.DB
	publisher events.Publisher
}

// New returns a Notifier. A nil publisher only stores notifications.
func New(db *sql.DB, publisher events.Publisher) *Notifier {
	return &Notifier{db: db, publisher: publisher}
}

// CheckLowStock alerts once when an item has newly dropped to the stored
// threshold or below. It returns nil when nothing new was reported.
func (n *Notifier) CheckLowStock(ctx context.Context, itemID string) (*model.Notification, error) {
	created, err := store.ClaimLowStockAlert(ctx, n.db, itemID)
	if err != nil || created == nil {
		return nil, err
	}
	slog.Info("low stock", "item", itemID, "quantity", *created.Quantity)
	n.publish(ctx, created)
	return created, nil
}

// Notify stores an arbitrary notification and publishes it.
func (n *Notifier) Notify(ctx context.Context, in model.Notification) (*model.Notification, error) {
	created, err := store.CreateNotification(ctx, n.db, in)
	if err != nil {
		return nil, err
	}
	n.publish(ctx, created)
	return created, nil
}

// Publish pushes notifications that were already stored.
func (n *Notifier) Publish(ctx context.Context, list []model.Notification) {
	for i := range list {
		n.publish(ctx, &list[i])
	}
}

func (n *Notifier) publish(ctx context.Context, note *model.Notification) {
	if n.publisher == nil {
		return
	}
	key := note.ID
	if note.ItemID != nil {
		key = *note.ItemID
	}
	if err := n.publisher.Publish(ctx, key, events.NewNotificationEvent(note)); err != nil {
		slog.Warn("failed to publish notification", "notification", note.ID, "error", err)
	}
}
