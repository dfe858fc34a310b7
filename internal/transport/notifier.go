package transport

import (
	"context"

	"go.uber.org/zap"
)

// Notifier reports command outcomes back to a chat. Delivery is best-effort:
// a failed notification must never fail the operation that produced it.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string)
}

type messengerNotifier struct {
	logger    *zap.Logger
	messenger Messenger
}

// NewNotifier wraps a Messenger into a best-effort Notifier. Send failures
// are logged and swallowed.
func NewNotifier(logger *zap.Logger, m Messenger) Notifier {
	return &messengerNotifier{
		logger:    logger.Named("notifier"),
		messenger: m,
	}
}

func (n *messengerNotifier) Notify(ctx context.Context, chatID int64, text string) {
	if err := n.messenger.Send(ctx, chatID, text); err != nil {
		n.logger.Debug("notification dropped",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
