package models

import "time"

const (
	PresenceAvailable = "available"
	PresenceMatched   = "matched"
)

// Presence is a user's availability lease. One document per user, keyed by
// user id. A presence past ExpiresAt is logically absent even if it has not
// been swept yet; readers must check expiry themselves.
type Presence struct {
	UserID          string    `bson:"_id" json:"userId"`
	ActivityTag     string    `bson:"activity_tag" json:"activityTag"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`
	Latitude        float64   `bson:"latitude" json:"latitude"`
	Longitude       float64   `bson:"longitude" json:"longitude"`
	SessionID       string    `bson:"session_id" json:"sessionId"`
	Status          string    `bson:"status" json:"status"`
	MatchID         string    `bson:"match_id,omitempty" json:"matchId,omitempty"`
	ExpiresAt       time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Active reports whether the lease is still live at the given instant.
func (p *Presence) Active(now time.Time) bool {
	return p != nil && now.Before(p.ExpiresAt)
}
