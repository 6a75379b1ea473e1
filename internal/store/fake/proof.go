package fake

import (
	"context"
	"sync"

	"grievance/internal/grievance"
)

// ProofStore backs proof.Repository in memory.
type ProofStore struct {
	mu            sync.Mutex
	proofs        map[int64][]grievance.ResolutionProof
	nextProofID   int64
	signoffs      map[int64]*grievance.CitizenSignoff
	nextSignoffID int64
}

func NewProofStore() *ProofStore {
	return &ProofStore{
		proofs:   make(map[int64][]grievance.ResolutionProof),
		signoffs: make(map[int64]*grievance.CitizenSignoff),
	}
}

func (s *ProofStore) InsertProof(ctx context.Context, p *grievance.ResolutionProof) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProofID++
	p.ProofID = s.nextProofID
	s.proofs[p.ComplaintID] = append(s.proofs[p.ComplaintID], *p)
	return s.nextProofID, nil
}

func (s *ProofStore) ProofsByComplaint(ctx context.Context, complaintID int64) ([]grievance.ResolutionProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]grievance.ResolutionProof(nil), s.proofs[complaintID]...)
	return out, nil
}

func (s *ProofStore) HasProof(ctx context.Context, complaintID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proofs[complaintID]) > 0, nil
}

func (s *ProofStore) InsertSignoff(ctx context.Context, so *grievance.CitizenSignoff) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSignoffID++
	so.SignoffID = s.nextSignoffID
	cp := *so
	s.signoffs[so.SignoffID] = &cp
	return so.SignoffID, nil
}

func (s *ProofStore) ActiveSignoff(ctx context.Context, complaintID int64) (*grievance.CitizenSignoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, so := range s.signoffs {
		if so.ComplaintID == complaintID && so.Active {
			cp := *so
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ProofStore) GetSignoff(ctx context.Context, signoffID int64) (*grievance.CitizenSignoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.signoffs[signoffID]
	if !ok {
		return nil, nil
	}
	cp := *so
	return &cp, nil
}

func (s *ProofStore) UpdateDisputeStatus(ctx context.Context, signoffID int64, status grievance.DisputeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.signoffs[signoffID]
	if !ok {
		return nil
	}
	so.DisputeStatus.String, so.DisputeStatus.Valid = string(status), true
	so.Active = false
	return nil
}
