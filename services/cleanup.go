package services

import (
	"context"
	"log/slog"
	"time"

	"linkup/metrics"
	"linkup/models"
	"linkup/store"
)

type CleanupService struct {
	store     store.Store
	log       *slog.Logger
	batchSize int
}

func NewCleanupService(st store.Store, log *slog.Logger, batchSize int) *CleanupService {
	return &CleanupService{store: st, log: log.With("service", "cleanup"), batchSize: batchSize}
}

// CancelPendingOffers is the stale offer reaper: once a user enters a match
// their other pending offers are cancelled with reason matched_elsewhere.
// Each offer transitions in its own small transaction; failures are logged
// and skipped because a surviving stale offer is caught later by the
// respond path anyway. Returns the number of offers cancelled.
func (c *CleanupService) CancelPendingOffers(ctx context.Context, userID, excludeOfferID string) int {
	offers, err := c.store.Offers().ListPendingForUser(ctx, userID)
	if err != nil {
		c.log.Warn("listing pending offers failed", "userId", userID, "error", err)
		return 0
	}

	cancelled := 0
	for _, o := range offers {
		if o.ID == excludeOfferID {
			continue
		}
		offerID := o.ID
		reaped := false
		err := c.store.RunTransaction(ctx, func(ctx context.Context) error {
			reaped = false
			cur, err := c.store.Offers().Get(ctx, offerID)
			if isNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if cur.Terminal() {
				return nil
			}
			reaped = true
			cur.Status = models.OfferCancelled
			cur.CancelReason = models.CancelReasonMatchedElsewhere
			cur.UpdatedAt = time.Now()
			if err := c.store.Offers().Put(ctx, cur); err != nil {
				return err
			}
			return releaseOfferLock(ctx, c.store, cur)
		})
		if err != nil {
			c.log.Warn("skipping stale offer", "offerId", offerID, "error", err)
			continue
		}
		if reaped {
			cancelled++
			metrics.OffersReaped.Inc()
		}
	}
	return cancelled
}

// SweepExpired is the scheduled expiry sweep. It deletes expired available
// presence leases and expires stale pending offers, in bounded batches. It
// is re-entrant: a concurrent or repeated run simply finds nothing left to
// remove. Returns the number of records removed or expired.
func (c *CleanupService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	presences, err := c.store.Presences().ListExpired(ctx, now, c.batchSize)
	if err != nil {
		return removed, err
	}
	for _, p := range presences {
		if c.removeExpiredPresence(ctx, p, now) {
			removed++
		}
	}

	offers, err := c.store.Offers().ListExpiredPending(ctx, now, c.batchSize)
	if err != nil {
		return removed, err
	}
	for _, o := range offers {
		offerID := o.ID
		expired := false
		err := c.store.RunTransaction(ctx, func(ctx context.Context) error {
			expired = false
			cur, err := c.store.Offers().Get(ctx, offerID)
			if isNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if cur.Terminal() || now.Before(cur.ExpiresAt) {
				return nil
			}
			expired = true
			cur.Status = models.OfferExpired
			cur.UpdatedAt = time.Now()
			if err := c.store.Offers().Put(ctx, cur); err != nil {
				return err
			}
			return releaseOfferLock(ctx, c.store, cur)
		})
		if err != nil {
			c.log.Warn("expiring offer failed", "offerId", offerID, "error", err)
			continue
		}
		if expired {
			removed++
		}
	}

	if removed > 0 {
		metrics.SweeperRemoved.Add(float64(removed))
	}
	c.log.Info("sweep finished", "removed", removed)
	return removed, nil
}

// removeExpiredPresence deletes a lease the sweep listed as expired, but only
// if the stored copy is still that same expired session. A lease the user
// refreshed between listing and deletion survives untouched.
func (c *CleanupService) removeExpiredPresence(ctx context.Context, stale models.Presence, now time.Time) bool {
	deleted := false
	err := c.store.RunTransaction(ctx, func(ctx context.Context) error {
		deleted = false
		cur, err := c.store.Presences().Get(ctx, stale.UserID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur.SessionID != stale.SessionID || cur.Status != models.PresenceAvailable || now.Before(cur.ExpiresAt) {
			return nil
		}
		deleted = true
		return c.store.Presences().Delete(ctx, cur.UserID)
	})
	if err != nil {
		c.log.Warn("deleting expired presence failed", "userId", stale.UserID, "error", err)
		return false
	}
	return deleted
}
