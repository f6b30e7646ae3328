package models

import "time"

const (
	MatchPending        = "pending"
	MatchPlaceConfirmed = "place_confirmed"
	MatchActive         = "active"
	MatchCompleted      = "completed"
	MatchCancelled      = "cancelled"
)

// Match is the shared resource created when two users agree to meet.
// User1ID/User2ID never change after creation.
type Match struct {
	ID                     string    `bson:"_id" json:"matchId"`
	User1ID                string    `bson:"user1_id" json:"user1Id"`
	User2ID                string    `bson:"user2_id" json:"user2Id"`
	ActivityTag            string    `bson:"activity_tag,omitempty" json:"activityTag,omitempty"`
	Status                 string    `bson:"status" json:"status"`
	ConfirmedPlaceID       string    `bson:"confirmed_place_id,omitempty" json:"confirmedPlaceId,omitempty"`
	PlaceConfirmedBy       string    `bson:"place_confirmed_by,omitempty" json:"placeConfirmedBy,omitempty"`
	PendingConfirmationIDs []string  `bson:"pending_confirmation_uids" json:"pendingConfirmationUids"`
	CreatedAt              time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt              time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasUser reports whether the given user is one of the two participants.
func (m *Match) HasUser(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the participant opposite to userID.
func (m *Match) OtherUser(userID string) (string, bool) {
	if m.User1ID == userID {
		return m.User2ID, true
	}
	if m.User2ID == userID {
		return m.User1ID, true
	}
	return "", false
}

// Closed reports whether the match reached a terminal status.
func (m *Match) Closed() bool {
	return m.Status == MatchCompleted || m.Status == MatchCancelled
}

// MatchGuard is the per-pair mutual exclusion document. Its existence is the
// sole source of truth for "this pair already has an active match". Keyed by
// the canonical pair key.
type MatchGuard struct {
	PairKey   string    `bson:"_id" json:"pairKey"`
	MatchID   string    `bson:"match_id" json:"matchId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
