package model

import "time"

// ClassLock is the persisted form of a schedule lease.
type ClassLock struct {
	Key       string    `bson:"_id" json:"key"`
	Token     string    `bson:"token" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
