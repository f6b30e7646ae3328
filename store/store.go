// Package store defines the persistence interfaces for presences, offers,
// matches and pair guards, plus the transaction runner every multi-writer
// operation goes through. Two implementations ship: MongoDB for production
// and an in-memory store with the same conflict semantics for tests.
package store

import (
	"context"
	"time"

	"linkup/models"
)

// Store is the transactional document store the services coordinate through.
type Store interface {
	Presences() PresenceRepo
	Offers() OfferRepo
	Matches() MatchRepo
	Guards() GuardRepo
	Places() PlaceRepo

	// RunTransaction executes fn as a single serializable transaction.
	// Repository calls made with the context passed to fn join the
	// transaction. Conflicting commits are retried transparently by
	// re-running fn; once the retry budget is exhausted the error wraps
	// apperrors.ErrTransactionAborted. Errors returned by fn abort the
	// transaction and are passed through unchanged.
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PresenceRepo interface {
	// Get returns the user's presence lease or apperrors.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.Presence, error)
	// Put creates or replaces the user's presence lease.
	Put(ctx context.Context, p *models.Presence) error
	// Delete removes the lease. Deleting an absent lease is a no-op.
	Delete(ctx context.Context, userID string) error
	// ListExpired returns up to limit available leases whose expiry has
	// passed. Matched leases are excluded; they are cleaned up when their
	// match closes.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Presence, error)
}

type OfferRepo interface {
	Get(ctx context.Context, offerID string) (*models.Offer, error)
	Put(ctx context.Context, o *models.Offer) error
	// ListPendingForUser returns every pending offer where the user is
	// sender or recipient.
	ListPendingForUser(ctx context.Context, userID string) ([]models.Offer, error)
	// ListExpiredPending returns up to limit pending offers whose TTL has
	// passed.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Offer, error)

	// GetLock returns the pair's pending-offer lock or apperrors.ErrNotFound.
	GetLock(ctx context.Context, pairKey string) (*models.OfferLock, error)
	// PutLock creates or replaces the pair's pending-offer lock. Two
	// transactions writing the same lock conflict, which is what funnels
	// simultaneous mutual offers into a single match.
	PutLock(ctx context.Context, l *models.OfferLock) error
	DeleteLock(ctx context.Context, pairKey string) error
}

type MatchRepo interface {
	Get(ctx context.Context, matchID string) (*models.Match, error)
	Put(ctx context.Context, m *models.Match) error
}

type GuardRepo interface {
	// Get returns the pair's match guard or apperrors.ErrNotFound.
	Get(ctx context.Context, pairKey string) (*models.MatchGuard, error)
	// Create inserts the guard. The guard is created at most once per
	// active match; concurrent creators conflict at commit.
	Create(ctx context.Context, g *models.MatchGuard) error
	// Delete removes the guard, making the pair matchable again.
	Delete(ctx context.Context, pairKey string) error
}

type PlaceRepo interface {
	Get(ctx context.Context, placeID string) (*models.Place, error)
	Put(ctx context.Context, p *models.Place) error
}
