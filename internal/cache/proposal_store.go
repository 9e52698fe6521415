package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"example.com/grocer/services/assistant/internal/models"
)

// ProposalStore keeps each customer's pending order proposal between the
// proposal turn and the confirmation turn. Redis-backed when the cache is
// enabled, in-memory otherwise so single-node development still works.
type ProposalStore struct {
	cache *RedisCache
	ttl   time.Duration

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	proposal *models.OrderProposal
	storedAt time.Time
}

// NewProposalStore creates a new proposal store
func NewProposalStore(cache *RedisCache, ttl time.Duration) *ProposalStore {
	return &ProposalStore{
		cache: cache,
		ttl:   ttl,
		local: make(map[string]localEntry),
	}
}

// Put stores the proposal under the customer's key with the configured TTL.
func (s *ProposalStore) Put(ctx context.Context, proposal *models.OrderProposal) error {
	if s.cache != nil && s.cache.Enabled() {
		return s.cache.Set(ctx, GetProposalCacheKey(proposal.CustomerID), proposal, s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[proposal.CustomerID] = localEntry{proposal: proposal, storedAt: time.Now()}
	return nil
}

// Get returns the customer's pending proposal, or nil when none is stored.
// Expiry in Redis shows up as a plain miss; the router still checks the
// proposal's CreatedAt against the TTL for proposals carried in requests.
func (s *ProposalStore) Get(ctx context.Context, customerID string) (*models.OrderProposal, error) {
	if s.cache != nil && s.cache.Enabled() {
		var proposal models.OrderProposal
		err := s.cache.Get(ctx, GetProposalCacheKey(customerID), &proposal)
		if err != nil {
			if errors.Is(err, ErrCacheMiss) {
				return nil, nil
			}
			return nil, err
		}
		return &proposal, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[customerID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Since(entry.storedAt) > s.ttl {
		delete(s.local, customerID)
		return nil, nil
	}
	return entry.proposal, nil
}

// Delete drops the customer's pending proposal.
func (s *ProposalStore) Delete(ctx context.Context, customerID string) error {
	if s.cache != nil && s.cache.Enabled() {
		return s.cache.Delete(ctx, GetProposalCacheKey(customerID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.local, customerID)
	return nil
}
