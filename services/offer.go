package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkup/apperrors"
	"linkup/metrics"
	"linkup/models"
	"linkup/store"
	"linkup/utils"
)

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

type OfferService struct {
	store    store.Store
	log      *slog.Logger
	matches  *MatchService
	offerTTL time.Duration
}

func NewOfferService(st store.Store, log *slog.Logger, matches *MatchService, offerTTL time.Duration) *OfferService {
	return &OfferService{store: st, log: log.With("service", "offer"), matches: matches, offerTTL: offerTTL}
}

type CreateResult struct {
	OfferID      string
	MatchCreated bool
	MatchID      string
}

type RespondResult struct {
	MatchCreated bool
	MatchID      string
}

// releaseOfferLock deletes the pair's offer lock only while it still points at
// the offer leaving the pending state. After a pending offer outlives its TTL
// unswept, a new create repoints the lock at the replacement offer; the stale
// offer's terminal transition must not release the live lock.
func releaseOfferLock(ctx context.Context, st store.Store, o *models.Offer) error {
	key, err := utils.PairKey(o.FromUserID, o.ToUserID)
	if err != nil {
		return err
	}
	lock, err := st.Offers().GetLock(ctx, key)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if lock.OfferID != o.ID {
		return nil
	}
	return st.Offers().DeleteLock(ctx, key)
}

// Create sends a meet offer from one user to another. Both users must hold
// a live available presence. If the recipient already has a pending offer
// to the sender, the two offers collapse into immediate match formation.
// Re-sending while the original is still pending returns the existing offer.
//
// At most one pending offer exists per unordered pair; the pair's offer
// lock is written in the same transaction, so two users offering each other
// at the same instant conflict at the store and resolve into one match.
func (s *OfferService) Create(ctx context.Context, fromUserID, toUserID, activityTag string) (*CreateResult, error) {
	key, err := utils.PairKey(fromUserID, toUserID)
	if err != nil {
		return nil, err
	}

	var res CreateResult
	var createdNew bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context) error {
		res = CreateResult{}
		createdNew = false
		now := time.Now()

		for _, uid := range []string{fromUserID, toUserID} {
			p, err := s.store.Presences().Get(ctx, uid)
			if isNotFound(err) {
				return fmt.Errorf("%w: user %s is not available", apperrors.ErrInvalidInput, uid)
			}
			if err != nil {
				return err
			}
			if p.Status != models.PresenceAvailable || !p.Active(now) {
				return fmt.Errorf("%w: user %s is no longer available", apperrors.ErrInvalidInput, uid)
			}
		}

		lock, err := s.store.Offers().GetLock(ctx, key)
		if err != nil && !isNotFound(err) {
			return err
		}
		if lock != nil {
			existing, err := s.store.Offers().Get(ctx, lock.OfferID)
			if err != nil && !isNotFound(err) {
				return err
			}
			if existing != nil && !existing.Terminal() && now.Before(existing.ExpiresAt) {
				if existing.FromUserID == fromUserID {
					// sender-side idempotency: same offer, return it
					res = CreateResult{OfferID: existing.ID}
					return nil
				}
				// reciprocal offer: accept it instead of duplicating
				fr, err := s.matches.formMatchTx(ctx, fromUserID, toUserID, FormContext{
					TriggeringOfferID: existing.ID,
					ActivityTag:       existing.ActivityTag,
				})
				if err != nil {
					return err
				}
				existing.Status = models.OfferAccepted
				existing.MatchID = fr.MatchID
				existing.UpdatedAt = now
				if err := s.store.Offers().Put(ctx, existing); err != nil {
					return err
				}
				if err := releaseOfferLock(ctx, s.store, existing); err != nil {
					return err
				}
				res = CreateResult{OfferID: existing.ID, MatchCreated: fr.IsNewMatch, MatchID: fr.MatchID}
				return nil
			}
			// lock points at a finished or expired offer, fall through
		}

		offer := &models.Offer{
			ID:          uuid.NewString(),
			FromUserID:  fromUserID,
			ToUserID:    toUserID,
			ActivityTag: activityTag,
			Status:      models.OfferPending,
			ExpiresAt:   now.Add(s.offerTTL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.Offers().Put(ctx, offer); err != nil {
			return err
		}
		if err := s.store.Offers().PutLock(ctx, &models.OfferLock{
			PairKey:    key,
			OfferID:    offer.ID,
			FromUserID: fromUserID,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
		res = CreateResult{OfferID: offer.ID}
		createdNew = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.MatchCreated {
		s.matches.afterFormed(ctx, fromUserID, toUserID, res.OfferID)
		s.log.Info("mutual offers matched", "offerId", res.OfferID, "matchId", res.MatchID)
	} else if createdNew {
		metrics.OffersCreated.Inc()
		s.log.Info("offer created", "offerId", res.OfferID, "from", fromUserID, "to", toUserID)
	}
	return &res, nil
}

// Respond resolves a pending offer. Only the recipient may respond, and
// only the first terminal transition applies; later responders get
// ErrAlreadyResolved. Accepting forms the match in the same transaction
// that finalizes the offer.
func (s *OfferService) Respond(ctx context.Context, offerID, callerID, action string) (*RespondResult, error) {
	if action != ActionAccept && action != ActionDecline {
		return nil, fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidInput, action)
	}

	var res RespondResult
	var fromUserID, toUserID string
	err := s.store.RunTransaction(ctx, func(ctx context.Context) error {
		res = RespondResult{}
		o, err := s.store.Offers().Get(ctx, offerID)
		if err != nil {
			return err
		}
		if o.ToUserID != callerID {
			return fmt.Errorf("%w: only the recipient can respond", apperrors.ErrPermissionDenied)
		}
		if o.Terminal() {
			return fmt.Errorf("%w: offer is %s", apperrors.ErrAlreadyResolved, o.Status)
		}
		now := time.Now()
		if !now.Before(o.ExpiresAt) {
			return fmt.Errorf("%w: offer has expired", apperrors.ErrAlreadyResolved)
		}

		if action == ActionDecline {
			o.Status = models.OfferDeclined
			o.UpdatedAt = now
			if err := s.store.Offers().Put(ctx, o); err != nil {
				return err
			}
			return releaseOfferLock(ctx, s.store, o)
		}

		fr, err := s.matches.formMatchTx(ctx, o.FromUserID, o.ToUserID, FormContext{
			TriggeringOfferID: o.ID,
			ActivityTag:       o.ActivityTag,
		})
		if err != nil {
			return err
		}
		o.Status = models.OfferAccepted
		o.MatchID = fr.MatchID
		o.UpdatedAt = now
		if err := s.store.Offers().Put(ctx, o); err != nil {
			return err
		}
		if err := releaseOfferLock(ctx, s.store, o); err != nil {
			return err
		}
		fromUserID, toUserID = o.FromUserID, o.ToUserID
		res = RespondResult{MatchCreated: fr.IsNewMatch, MatchID: fr.MatchID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.MatchCreated {
		s.matches.afterFormed(ctx, fromUserID, toUserID, offerID)
		s.log.Info("offer accepted", "offerId", offerID, "matchId", res.MatchID)
	}
	return &res, nil
}

// Cancel withdraws a pending offer. Only the sender may cancel, and only
// while the offer is still pending.
func (s *OfferService) Cancel(ctx context.Context, offerID, callerID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context) error {
		o, err := s.store.Offers().Get(ctx, offerID)
		if err != nil {
			return err
		}
		if o.FromUserID != callerID {
			return fmt.Errorf("%w: only the sender can cancel", apperrors.ErrPermissionDenied)
		}
		if o.Terminal() {
			return fmt.Errorf("%w: offer is %s", apperrors.ErrAlreadyResolved, o.Status)
		}
		o.Status = models.OfferCancelled
		o.UpdatedAt = time.Now()
		if err := s.store.Offers().Put(ctx, o); err != nil {
			return err
		}
		return releaseOfferLock(ctx, s.store, o)
	})
}
