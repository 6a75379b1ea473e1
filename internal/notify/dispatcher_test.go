package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/grievance"
	"grievance/internal/store/fake"
)

type failingMessaging struct{}

func (failingMessaging) Send(ctx context.Context, recipientID int64, text string) error {
	return errors.New("provider unavailable")
}

func TestNotifyPersistsInAppEntryRegardlessOfChannel(t *testing.T) {
	store := fake.NewNotifyStore()
	d := New(store, failingMessaging{}, store)

	err := d.Notify(context.Background(), &grievance.Notification{
		RecipientID: 1, Type: grievance.NotifyStatusChange, Title: "t", Message: "m", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Len(t, store.All(), 1)
}

func TestNotifySwallowsMessagingFailure(t *testing.T) {
	store := fake.NewNotifyStore()
	store.SeedMessagingChannel(1)
	d := New(store, failingMessaging{}, store)

	err := d.Notify(context.Background(), &grievance.Notification{
		RecipientID: 1, Type: grievance.NotifyAssignment, Title: "t", Message: "m", CreatedAt: time.Now(),
	})
	require.NoError(t, err, "external delivery failures must never propagate once the in-app entry is persisted")
}

func TestNotifySkipsExternalSendWithoutChannel(t *testing.T) {
	store := fake.NewNotifyStore()
	sent := false
	sendTracker := trackingMessaging{onSend: func() { sent = true }}
	d := New(store, sendTracker, store)

	err := d.Notify(context.Background(), &grievance.Notification{
		RecipientID: 2, Type: grievance.NotifyEscalation, Title: "t", Message: "m", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, sent, "no messaging channel registered, external send must not be attempted")
}

type trackingMessaging struct{ onSend func() }

func (t trackingMessaging) Send(ctx context.Context, recipientID int64, text string) error {
	t.onSend()
	return nil
}
