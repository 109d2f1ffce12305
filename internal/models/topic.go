package models

import "time"

// TopicMember is a user's membership of a broadcast topic (MongoDB).
type TopicMember struct {
	Topic     string    `json:"topic" bson:"topic"`
	UserID    UserID    `json:"user_id" bson:"user_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
