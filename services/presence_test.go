package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/apperrors"
	"linkup/models"
)

func TestStartPresence(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	p, err := e.presence.Start(ctx, "alice", "coffee", 45, 40.75, -73.99)
	require.NoError(t, err)
	assert.Equal(t, models.PresenceAvailable, p.Status)
	assert.Equal(t, "coffee", p.ActivityTag)
	assert.NotEmpty(t, p.SessionID)
	assert.True(t, p.ExpiresAt.After(time.Now().Add(44*time.Minute)))
}

func TestStartPresenceReplacesLease(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	first, err := e.presence.Start(ctx, "alice", "coffee", 30, 40.75, -73.99)
	require.NoError(t, err)
	second, err := e.presence.Start(ctx, "alice", "lunch", 60, 40.75, -73.99)
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	stored := e.getPresence(t, "alice")
	assert.Equal(t, "lunch", stored.ActivityTag)
	assert.Equal(t, second.SessionID, stored.SessionID)
}

func TestStartPresenceValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.presence.Start(ctx, "", "coffee", 30, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = e.presence.Start(ctx, "alice", "", 30, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = e.presence.Start(ctx, "alice", "coffee", 0, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = e.presence.Start(ctx, "alice", "coffee", 30, 91, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = e.presence.Start(ctx, "alice", "coffee", 30, 0, -181)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestStartPresenceWhileMatched(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")
	_, err := e.matches.FormMatch(ctx, "alice", "bob", FormContext{})
	require.NoError(t, err)

	_, err = e.presence.Start(ctx, "alice", "coffee", 30, 40.75, -73.99)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEndPresence(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")

	require.NoError(t, e.presence.End(ctx, "alice"))
	_, err := e.store.Presences().Get(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// ending an absent lease is a no-op
	require.NoError(t, e.presence.End(ctx, "alice"))
}

func TestEndPresenceWhileMatched(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startPresence(t, "alice")
	e.startPresence(t, "bob")
	_, err := e.matches.FormMatch(ctx, "alice", "bob", FormContext{})
	require.NoError(t, err)

	err = e.presence.End(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
