// Package notify fans domain events out to the in-app inbox (synchronous,
// written in its own statement after the originating mutation has committed,
// not inside that mutation's transaction) and an external messaging
// sink (best-effort, never retried, failures logged and swallowed).
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"grievance/internal/grievance"
)

// Repository persists the in-app inbox.
type Repository interface {
	Insert(ctx context.Context, n *grievance.Notification) (int64, error)
}

// MessagingClient is the external best-effort sink. A shadow/log
// implementation lives in internal/external.
type MessagingClient interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// RecipientContact resolves whether a recipient has a registered mobile
// channel, master data the dispatcher reads but does not own.
type RecipientContact interface {
	HasMessagingChannel(ctx context.Context, recipientID int64) (bool, error)
}

// Dispatcher fans one domain event out to every configured channel.
type Dispatcher struct {
	repo      Repository
	messaging MessagingClient
	contacts  RecipientContact
}

func New(repo Repository, messaging MessagingClient, contacts RecipientContact) *Dispatcher {
	return &Dispatcher{repo: repo, messaging: messaging, contacts: contacts}
}

// Notify writes the in-app inbox entry synchronously and, if the recipient
// has a registered messaging channel, attempts external delivery
// best-effort. External failures never propagate.
func (d *Dispatcher) Notify(ctx context.Context, n *grievance.Notification) error {
	if _, err := d.repo.Insert(ctx, n); err != nil {
		return grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist notification", err)
	}

	hasChannel, err := d.contacts.HasMessagingChannel(ctx, n.RecipientID)
	if err != nil || !hasChannel {
		return nil
	}
	if err := d.messaging.Send(ctx, n.RecipientID, n.Title+": "+n.Message); err != nil {
		log.Warn().Err(err).Int64("recipient_id", n.RecipientID).Str("type", string(n.Type)).
			Msg("external notification delivery failed, in-app entry already persisted")
	}
	return nil
}
