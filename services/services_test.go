package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkup/models"
	"linkup/store"
)

type testEnv struct {
	store    *store.MemoryStore
	presence *PresenceService
	offers   *OfferService
	matches  *MatchService
	cleanup  *CleanupService
	places   *PlaceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleanup := NewCleanupService(st, logger, 100)
	matches := NewMatchService(st, logger, cleanup)
	return &testEnv{
		store:    st,
		presence: NewPresenceService(st, logger),
		offers:   NewOfferService(st, logger, matches, 30*time.Minute),
		matches:  matches,
		cleanup:  cleanup,
		places:   NewPlaceService(st),
	}
}

func (e *testEnv) startPresence(t *testing.T, userID string) {
	t.Helper()
	_, err := e.presence.Start(context.Background(), userID, "coffee", 60, 40.75, -73.99)
	require.NoError(t, err)
}

// expirePresence rewrites the lease with an expiry in the past.
func (e *testEnv) expirePresence(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	p, err := e.store.Presences().Get(ctx, userID)
	require.NoError(t, err)
	p.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, e.store.Presences().Put(ctx, p))
}

// expireOffer rewrites the offer with a TTL in the past.
func (e *testEnv) expireOffer(t *testing.T, offerID string) {
	t.Helper()
	ctx := context.Background()
	o, err := e.store.Offers().Get(ctx, offerID)
	require.NoError(t, err)
	o.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, e.store.Offers().Put(ctx, o))
}

func (e *testEnv) addPlace(t *testing.T, name, address string) string {
	t.Helper()
	p, err := e.places.Create(context.Background(), name, address)
	require.NoError(t, err)
	return p.ID
}

func (e *testEnv) getOffer(t *testing.T, offerID string) *models.Offer {
	t.Helper()
	o, err := e.store.Offers().Get(context.Background(), offerID)
	require.NoError(t, err)
	return o
}

func (e *testEnv) getPresence(t *testing.T, userID string) *models.Presence {
	t.Helper()
	p, err := e.store.Presences().Get(context.Background(), userID)
	require.NoError(t, err)
	return p
}
