// Package services implements the match-formation protocol: presence
// leases, the offer lifecycle, atomic match formation behind the pair
// guard, first-confirm-wins place resolution, and the cleanup jobs.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkup/apperrors"
	"linkup/models"
	"linkup/store"
)

const maxLeaseMinutes = 480

type PresenceService struct {
	store store.Store
	log   *slog.Logger
}

func NewPresenceService(st store.Store, log *slog.Logger) *PresenceService {
	return &PresenceService{store: st, log: log.With("service", "presence")}
}

// Start opens a new availability lease for the user. A lease is never
// extended implicitly; starting again replaces the previous lease with a
// fresh session id and expiry. Starting while matched is rejected: users
// leave a match by completing or cancelling it.
func (s *PresenceService) Start(ctx context.Context, userID, activityTag string, durationMinutes int, lat, lng float64) (*models.Presence, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", apperrors.ErrInvalidInput)
	}
	if activityTag == "" {
		return nil, fmt.Errorf("%w: missing activity tag", apperrors.ErrInvalidInput)
	}
	if durationMinutes <= 0 || durationMinutes > maxLeaseMinutes {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", apperrors.ErrInvalidInput, maxLeaseMinutes)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: latitude or longitude out of range", apperrors.ErrInvalidInput)
	}

	var out *models.Presence
	err := s.store.RunTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.store.Presences().Get(ctx, userID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing != nil && existing.Status == models.PresenceMatched {
			return fmt.Errorf("%w: user is in an active match", apperrors.ErrInvalidInput)
		}
		now := time.Now()
		p := &models.Presence{
			UserID:          userID,
			ActivityTag:     activityTag,
			DurationMinutes: durationMinutes,
			Latitude:        lat,
			Longitude:       lng,
			SessionID:       uuid.NewString(),
			Status:          models.PresenceAvailable,
			ExpiresAt:       now.Add(time.Duration(durationMinutes) * time.Minute),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.Presences().Put(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("presence started", "userId", userID, "sessionId", out.SessionID, "expiresAt", out.ExpiresAt)
	return out, nil
}

// End closes the user's availability lease. Ending an absent lease is a
// no-op; ending a matched lease is rejected because match formation owns it
// until the match closes.
func (s *PresenceService) End(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", apperrors.ErrInvalidInput)
	}
	return s.store.RunTransaction(ctx, func(ctx context.Context) error {
		p, err := s.store.Presences().Get(ctx, userID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.Status == models.PresenceMatched {
			return fmt.Errorf("%w: user is in an active match", apperrors.ErrInvalidInput)
		}
		return s.store.Presences().Delete(ctx, userID)
	})
}
