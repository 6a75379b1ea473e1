package fake

import (
	"context"
	"sync"

	"grievance/internal/grievance"
)

// NotifyStore backs notify.Repository and notify.RecipientContact in memory.
type NotifyStore struct {
	mu             sync.Mutex
	notifications  []grievance.Notification
	nextID         int64
	messagingUsers map[int64]bool
}

func NewNotifyStore() *NotifyStore {
	return &NotifyStore{messagingUsers: make(map[int64]bool)}
}

// SeedMessagingChannel registers recipientID as having a messaging channel
// for HasMessagingChannel.
func (s *NotifyStore) SeedMessagingChannel(recipientID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagingUsers[recipientID] = true
}

func (s *NotifyStore) Insert(ctx context.Context, n *grievance.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.NotificationID = s.nextID
	s.notifications = append(s.notifications, *n)
	return s.nextID, nil
}

func (s *NotifyStore) HasMessagingChannel(ctx context.Context, recipientID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagingUsers[recipientID], nil
}

// All returns every notification inserted so far, in insertion order.
func (s *NotifyStore) All() []grievance.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grievance.Notification(nil), s.notifications...)
}
