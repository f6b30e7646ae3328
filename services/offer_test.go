package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/apperrors"
	"linkup/models"
	"linkup/utils"
)

func TestCreateOfferPending(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	res, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	assert.False(t, res.MatchCreated)
	assert.NotEmpty(t, res.OfferID)

	o := e.getOffer(t, res.OfferID)
	assert.Equal(t, models.OfferPending, o.Status)
	assert.Equal(t, "alice", o.FromUserID)
	assert.Equal(t, "bob", o.ToUserID)
	assert.Equal(t, "coffee", o.ActivityTag)

	key, err := utils.PairKey("alice", "bob")
	require.NoError(t, err)
	lock, err := e.store.Offers().GetLock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, res.OfferID, lock.OfferID)
}

func TestCreateOfferIdempotentForSender(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	first, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	second, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	assert.Equal(t, first.OfferID, second.OfferID)
	assert.False(t, second.MatchCreated)
}

func TestCreateOfferValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")

	_, err := e.offers.Create(ctx, "alice", "alice", "coffee")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// recipient holds no presence
	_, err = e.offers.Create(ctx, "alice", "bob", "coffee")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// recipient's presence expired
	e.startPresence(t, "bob")
	e.expirePresence(t, "bob")
	_, err = e.offers.Create(ctx, "alice", "bob", "coffee")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateOfferReciprocalFormsMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	first, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	res, err := e.offers.Create(ctx, "bob", "alice", "coffee")
	require.NoError(t, err)
	assert.True(t, res.MatchCreated)
	assert.NotEmpty(t, res.MatchID)
	assert.Equal(t, first.OfferID, res.OfferID, "the existing offer is accepted, not duplicated")

	o := e.getOffer(t, first.OfferID)
	assert.Equal(t, models.OfferAccepted, o.Status)
	assert.Equal(t, res.MatchID, o.MatchID)

	for _, uid := range []string{"alice", "bob"} {
		p := e.getPresence(t, uid)
		assert.Equal(t, models.PresenceMatched, p.Status)
		assert.Equal(t, res.MatchID, p.MatchID)
	}
}

func TestMutualSimultaneousOffersFormSingleMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	var wg sync.WaitGroup
	var r1, r2 *CreateResult
	var err1, err2 error
	wg.Add(2)
	go func() {
		defer wg.Done()
		r1, err1 = e.offers.Create(ctx, "alice", "bob", "coffee")
	}()
	go func() {
		defer wg.Done()
		r2, err2 = e.offers.Create(ctx, "bob", "alice", "coffee")
	}()
	wg.Wait()

	require.NoError(t, err1)
	require.NoError(t, err2)

	matches := 0
	var matchID string
	for _, r := range []*CreateResult{r1, r2} {
		if r.MatchCreated {
			matches++
			matchID = r.MatchID
		}
	}
	require.Equal(t, 1, matches, "the two mutual offers must collapse into one match")

	for _, uid := range []string{"alice", "bob"} {
		p := e.getPresence(t, uid)
		assert.Equal(t, models.PresenceMatched, p.Status)
		assert.Equal(t, matchID, p.MatchID)

		pending, err := e.store.Offers().ListPendingForUser(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, pending, "no pending offer may survive the mutual match")
	}

	key, err := utils.PairKey("alice", "bob")
	require.NoError(t, err)
	guard, err := e.store.Guards().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, matchID, guard.MatchID)
}

func TestRespondAcceptFormsMatchAndReapsOthers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")
	e.startPresence(t, "carol")

	stale, err := e.offers.Create(ctx, "alice", "carol", "coffee")
	require.NoError(t, err)
	offer, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	res, err := e.offers.Respond(ctx, offer.OfferID, "bob", ActionAccept)
	require.NoError(t, err)
	assert.True(t, res.MatchCreated)

	accepted := e.getOffer(t, offer.OfferID)
	assert.Equal(t, models.OfferAccepted, accepted.Status)
	assert.Equal(t, res.MatchID, accepted.MatchID)

	reaped := e.getOffer(t, stale.OfferID)
	assert.Equal(t, models.OfferCancelled, reaped.Status)
	assert.Equal(t, models.CancelReasonMatchedElsewhere, reaped.CancelReason)

	key, err := utils.PairKey("alice", "bob")
	require.NoError(t, err)
	_, err = e.store.Offers().GetLock(ctx, key)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "the pair's offer lock is released")
}

func TestRespondDecline(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	offer, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	res, err := e.offers.Respond(ctx, offer.OfferID, "bob", ActionDecline)
	require.NoError(t, err)
	assert.False(t, res.MatchCreated)

	o := e.getOffer(t, offer.OfferID)
	assert.Equal(t, models.OfferDeclined, o.Status)
	assert.Empty(t, o.MatchID)

	for _, uid := range []string{"alice", "bob"} {
		assert.Equal(t, models.PresenceAvailable, e.getPresence(t, uid).Status)
	}
}

func TestRespondPermissionAndActionChecks(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	offer, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	_, err = e.offers.Respond(ctx, offer.OfferID, "bob", "maybe")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = e.offers.Respond(ctx, offer.OfferID, "alice", ActionAccept)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = e.offers.Respond(ctx, "no-such-offer", "bob", ActionAccept)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRespondOnlyFirstTransitionApplies(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	offer, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	_, err = e.offers.Respond(ctx, offer.OfferID, "bob", ActionDecline)
	require.NoError(t, err)

	_, err = e.offers.Respond(ctx, offer.OfferID, "bob", ActionAccept)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResolved)

	err = e.offers.Cancel(ctx, offer.OfferID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResolved)

	o := e.getOffer(t, offer.OfferID)
	assert.Equal(t, models.OfferDeclined, o.Status, "terminal status never changes again")
	assert.Empty(t, o.MatchID)
}

func TestRespondAcceptWithStalePresenceFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	// bob offers alice, then alice's lease expires before she accepts
	offer, err := e.offers.Create(ctx, "bob", "alice", "coffee")
	require.NoError(t, err)
	e.expirePresence(t, "alice")

	_, err = e.offers.Respond(ctx, offer.OfferID, "alice", ActionAccept)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	o := e.getOffer(t, offer.OfferID)
	assert.Equal(t, models.OfferPending, o.Status, "a failed accept leaves the offer untouched")
}

func TestCancelOffer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	offer, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)

	err = e.offers.Cancel(ctx, offer.OfferID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, e.offers.Cancel(ctx, offer.OfferID, "alice"))
	o := e.getOffer(t, offer.OfferID)
	assert.Equal(t, models.OfferCancelled, o.Status)

	err = e.offers.Cancel(ctx, offer.OfferID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResolved)

	// the pair can offer again once the lock is released
	res, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	assert.NotEqual(t, offer.OfferID, res.OfferID)
}

func TestCancelStaleOfferKeepsReplacementLock(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")

	// first offer outlives its TTL unswept; a second create replaces it and
	// repoints the pair's lock at the fresh offer
	first, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	e.expireOffer(t, first.OfferID)
	second, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	require.NotEqual(t, first.OfferID, second.OfferID)

	// cancelling the stale offer must not release the live offer's lock
	require.NoError(t, e.offers.Cancel(ctx, first.OfferID, "alice"))

	key, err := utils.PairKey("alice", "bob")
	require.NoError(t, err)
	lock, err := e.store.Offers().GetLock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second.OfferID, lock.OfferID)

	// the duplicate check still sees the live offer
	again, err := e.offers.Create(ctx, "alice", "bob", "coffee")
	require.NoError(t, err)
	assert.Equal(t, second.OfferID, again.OfferID)
}
