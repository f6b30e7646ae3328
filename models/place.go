package models

import "time"

// Place is a meeting spot participants can confirm for a match.
type Place struct {
	ID        string    `bson:"_id" json:"placeId"`
	Name      string    `bson:"name" json:"name"`
	Address   string    `bson:"address" json:"address"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
