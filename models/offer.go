package models

import "time"

const (
	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferDeclined  = "declined"
	OfferCancelled = "cancelled"
	OfferExpired   = "expired"
)

// CancelReasonMatchedElsewhere is set by the stale offer reaper when a
// participant entered a different match.
const CancelReasonMatchedElsewhere = "matched_elsewhere"

// Offer is a directed meet proposal from one user to another. Once it
// reaches a terminal status it is never mutated again.
type Offer struct {
	ID           string    `bson:"_id" json:"offerId"`
	FromUserID   string    `bson:"from_user_id" json:"fromUserId"`
	ToUserID     string    `bson:"to_user_id" json:"toUserId"`
	ActivityTag  string    `bson:"activity_tag" json:"activityTag"`
	Status       string    `bson:"status" json:"status"`
	CancelReason string    `bson:"cancel_reason,omitempty" json:"cancelReason,omitempty"`
	MatchID      string    `bson:"match_id,omitempty" json:"matchId,omitempty"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// Terminal reports whether the offer has reached a final status.
func (o *Offer) Terminal() bool {
	return o.Status != OfferPending
}

// OfferLock pins the single live pending offer allowed between an unordered
// pair, keyed by the canonical pair key. It is deleted in the same transaction
// that moves its offer out of pending, but only while it still points at that
// offer; a stale offer whose lock was repointed to a replacement leaves the
// lock alone. Writing it is what makes two simultaneous mutual offers conflict
// at the store instead of producing two pending offers.
type OfferLock struct {
	PairKey    string    `bson:"_id" json:"pairKey"`
	OfferID    string    `bson:"offer_id" json:"offerId"`
	FromUserID string    `bson:"from_user_id" json:"fromUserId"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}
