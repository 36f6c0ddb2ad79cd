package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Bio       string               `bson:"bio" json:"bio"`
	Avatar    string               `bson:"avatar" json:"avatar"`
	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	IsOnline  bool                 `bson:"isOnline" json:"isOnline"`
	LastSeen  time.Time            `bson:"lastSeen" json:"lastSeen"`
	CreatedAt time.Time            `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// UserSummary is the subset of profile fields embedded in chat and post
// payloads (the "populate sender/receiver" shape).
type UserSummary struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Avatar string             `bson:"avatar" json:"avatar"`
}
