package services

import (
	"context"
	"errors"
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

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// FormContext carries optional metadata for a match being formed. It only
// feeds denormalized fields on the new match; correctness never depends on
// it.
type FormContext struct {
	TriggeringOfferID string
	ActivityTag       string
}

type FormResult struct {
	MatchID    string
	IsNewMatch bool
}

// PlaceConfirmation is returned to the winner of a place confirmation.
type PlaceConfirmation struct {
	PlaceName    string
	PlaceAddress string
}

type MatchService struct {
	store   store.Store
	log     *slog.Logger
	cleanup *CleanupService
}

func NewMatchService(st store.Store, log *slog.Logger, cleanup *CleanupService) *MatchService {
	return &MatchService{store: st, log: log.With("service", "match"), cleanup: cleanup}
}

// FormMatch transitions two available users into one shared match, exactly
// once per pair. Concurrent calls for the same unordered pair all return the
// same match id and at most one observes IsNewMatch. After a new match
// commits, both users' remaining pending offers are reaped best-effort.
func (s *MatchService) FormMatch(ctx context.Context, userA, userB string, fc FormContext) (*FormResult, error) {
	var res FormResult
	err := s.store.RunTransaction(ctx, func(ctx context.Context) error {
		r, err := s.formMatchTx(ctx, userA, userB, fc)
		if err != nil {
			return err
		}
		res = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.IsNewMatch {
		s.afterFormed(ctx, userA, userB, fc.TriggeringOfferID)
	}
	return &res, nil
}

// formMatchTx is the transactional core of match formation. It must run
// inside a store transaction; offer acceptance reuses it so the offer's
// terminal transition commits atomically with the match.
//
// The guard read decides everything: if the pair's guard exists the call is
// the idempotent loser and returns the existing match id with no writes.
// Otherwise the match, the guard, and both presence updates are staged in
// the same transaction, and the store's conflict detection on the guard
// document guarantees a single winner.
func (s *MatchService) formMatchTx(ctx context.Context, userA, userB string, fc FormContext) (*FormResult, error) {
	key, err := utils.PairKey(userA, userB)
	if err != nil {
		return nil, err
	}

	guard, err := s.store.Guards().Get(ctx, key)
	if err == nil {
		return &FormResult{MatchID: guard.MatchID, IsNewMatch: false}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	now := time.Now()
	presences := make([]*models.Presence, 0, 2)
	for _, uid := range []string{userA, userB} {
		p, err := s.store.Presences().Get(ctx, uid)
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: user %s is not available", apperrors.ErrInvalidInput, uid)
		}
		if err != nil {
			return nil, err
		}
		if p.Status != models.PresenceAvailable || !p.Active(now) {
			return nil, fmt.Errorf("%w: user %s is no longer available", apperrors.ErrInvalidInput, uid)
		}
		presences = append(presences, p)
	}

	// sort so user1/user2 come out the same from both call orders
	u1, u2 := userA, userB
	if u2 < u1 {
		u1, u2 = u2, u1
	}

	match := &models.Match{
		ID:          uuid.NewString(),
		User1ID:     u1,
		User2ID:     u2,
		ActivityTag: fc.ActivityTag,
		Status:      models.MatchPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Matches().Put(ctx, match); err != nil {
		return nil, err
	}
	if err := s.store.Guards().Create(ctx, &models.MatchGuard{PairKey: key, MatchID: match.ID, CreatedAt: now}); err != nil {
		return nil, err
	}
	for _, p := range presences {
		p.Status = models.PresenceMatched
		p.MatchID = match.ID
		p.UpdatedAt = now
		if err := s.store.Presences().Put(ctx, p); err != nil {
			return nil, err
		}
	}

	return &FormResult{MatchID: match.ID, IsNewMatch: true}, nil
}

// afterFormed runs the post-commit side effects of a new match: metrics and
// the stale offer reaper for both participants. Best-effort only.
func (s *MatchService) afterFormed(ctx context.Context, userA, userB, excludeOfferID string) {
	metrics.MatchesCreated.Inc()
	s.cleanup.CancelPendingOffers(ctx, userA, excludeOfferID)
	s.cleanup.CancelPendingOffers(ctx, userB, excludeOfferID)
}

// ConfirmPlace resolves the match's meeting place, first confirm wins.
// Preconditions are checked before the transaction for fast failure and
// re-checked inside it; under concurrent confirms exactly one value
// persists and the loser gets ErrAlreadyDecided.
func (s *MatchService) ConfirmPlace(ctx context.Context, matchID, placeID, callerID string) (*PlaceConfirmation, error) {
	m, err := s.store.Matches().Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasUser(callerID) {
		return nil, fmt.Errorf("%w: not a participant of this match", apperrors.ErrPermissionDenied)
	}
	if m.ConfirmedPlaceID != "" {
		return nil, fmt.Errorf("%w: place already confirmed", apperrors.ErrAlreadyDecided)
	}
	if m.Status != models.MatchPending {
		return nil, fmt.Errorf("%w: match is %s", apperrors.ErrInvalidInput, m.Status)
	}
	place, err := s.store.Places().Get(ctx, placeID)
	if err != nil {
		return nil, err
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context) error {
		m, err := s.store.Matches().Get(ctx, matchID)
		if err != nil {
			return err
		}
		if m.ConfirmedPlaceID != "" {
			return fmt.Errorf("%w: place already confirmed", apperrors.ErrAlreadyDecided)
		}
		if m.Status != models.MatchPending {
			return fmt.Errorf("%w: match is %s", apperrors.ErrInvalidInput, m.Status)
		}
		m.ConfirmedPlaceID = place.ID
		m.PlaceConfirmedBy = callerID
		m.Status = models.MatchPlaceConfirmed
		m.PendingConfirmationIDs = []string{m.User1ID, m.User2ID}
		m.UpdatedAt = time.Now()
		return s.store.Matches().Put(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("place confirmed", "matchId", matchID, "placeId", place.ID, "by", callerID)
	return &PlaceConfirmation{PlaceName: place.Name, PlaceAddress: place.Address}, nil
}

// MarkArrived records the caller's arrival at the confirmed place. When the
// last participant arrives the match becomes active. Re-arrival is a no-op.
func (s *MatchService) MarkArrived(ctx context.Context, matchID, callerID string) (string, error) {
	var status string
	err := s.store.RunTransaction(ctx, func(ctx context.Context) error {
		m, err := s.store.Matches().Get(ctx, matchID)
		if err != nil {
			return err
		}
		if !m.HasUser(callerID) {
			return fmt.Errorf("%w: not a participant of this match", apperrors.ErrPermissionDenied)
		}
		if m.Closed() {
			return fmt.Errorf("%w: match is %s", apperrors.ErrAlreadyResolved, m.Status)
		}
		if m.Status == models.MatchPending {
			return fmt.Errorf("%w: no place confirmed yet", apperrors.ErrInvalidInput)
		}
		remaining := m.PendingConfirmationIDs[:0:0]
		for _, uid := range m.PendingConfirmationIDs {
			if uid != callerID {
				remaining = append(remaining, uid)
			}
		}
		m.PendingConfirmationIDs = remaining
		if len(remaining) == 0 && m.Status == models.MatchPlaceConfirmed {
			m.Status = models.MatchActive
		}
		m.UpdatedAt = time.Now()
		if err := s.store.Matches().Put(ctx, m); err != nil {
			return err
		}
		status = m.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// Complete closes the match as completed.
func (s *MatchService) Complete(ctx context.Context, matchID, callerID string) error {
	return s.close(ctx, matchID, callerID, models.MatchCompleted)
}

// Cancel closes the match as cancelled.
func (s *MatchService) Cancel(ctx context.Context, matchID, callerID string) error {
	return s.close(ctx, matchID, callerID, models.MatchCancelled)
}

// close moves the match to a terminal status and, in the same transaction,
// deletes the pair guard and both presence leases. Deleting the guard is
// what makes the pair matchable again.
func (s *MatchService) close(ctx context.Context, matchID, callerID, terminal string) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context) error {
		m, err := s.store.Matches().Get(ctx, matchID)
		if err != nil {
			return err
		}
		if !m.HasUser(callerID) {
			return fmt.Errorf("%w: not a participant of this match", apperrors.ErrPermissionDenied)
		}
		if m.Closed() {
			return fmt.Errorf("%w: match is %s", apperrors.ErrAlreadyResolved, m.Status)
		}
		m.Status = terminal
		m.UpdatedAt = time.Now()
		if err := s.store.Matches().Put(ctx, m); err != nil {
			return err
		}
		key, err := utils.PairKey(m.User1ID, m.User2ID)
		if err != nil {
			return err
		}
		if err := s.store.Guards().Delete(ctx, key); err != nil {
			return err
		}
		for _, uid := range []string{m.User1ID, m.User2ID} {
			if err := s.store.Presences().Delete(ctx, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("match closed", "matchId", matchID, "status", terminal, "by", callerID)
	return nil
}
