package fake

import (
	"context"
	"sort"
	"sync"

	"grievance/internal/grievance"
)

// AuditStore backs audit.Repository in memory.
type AuditStore struct {
	mu     sync.Mutex
	events []grievance.AuditEvent
	nextID int64
}

func NewAuditStore() *AuditStore { return &AuditStore{} }

func (s *AuditStore) InsertIndependent(ctx context.Context, ev *grievance.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.EventID = s.nextID
	s.events = append(s.events, *ev)
	return nil
}

func (s *AuditStore) ByEntity(ctx context.Context, entityType, entityID string) ([]grievance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []grievance.AuditEvent
	for _, e := range s.events {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	sortAuditAsc(out)
	return out, nil
}

func (s *AuditStore) ByAction(ctx context.Context, action grievance.AuditAction) ([]grievance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []grievance.AuditEvent
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	sortAuditDesc(out)
	return out, nil
}

func (s *AuditStore) ByActor(ctx context.Context, actorID int64) ([]grievance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []grievance.AuditEvent
	for _, e := range s.events {
		if e.ActorID.Valid && e.ActorID.Int64 == actorID {
			out = append(out, e)
		}
	}
	sortAuditDesc(out)
	return out, nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]grievance.AuditEvent, error) {
	s.mu.Lock()
	out := append([]grievance.AuditEvent(nil), s.events...)
	s.mu.Unlock()
	sortAuditDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ties on CreatedAt break on EventID so a FixedClock's same-instant events
// keep insertion order. For the ascending order this matches ByEntity's SQL
// ORDER BY created_at, event_id; the descending SQL queries order by
// created_at only.
func sortAuditDesc(out []grievance.AuditEvent) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].EventID > out[j].EventID
	})
}

func sortAuditAsc(out []grievance.AuditEvent) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].EventID < out[j].EventID
	})
}
