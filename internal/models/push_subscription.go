package models

import "time"

// SubscriptionKeys are the client keys of a web push subscription, in the shape
// browsers emit from PushSubscription.toJSON().
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" gorm:"column:p256dh;not null" validate:"required"`
	Auth   string `json:"auth" gorm:"column:auth;not null" validate:"required"`
}

// PushSubscription is one registered device endpoint. Endpoint is unique across all users.
type PushSubscription struct {
	ID        uint64           `json:"-" gorm:"primaryKey"`
	UserID    UserID           `json:"user_id" gorm:"size:128;not null;index:idx_push_subscriptions_user"`
	Endpoint  string           `json:"endpoint" gorm:"size:2048;not null;uniqueIndex:idx_push_subscriptions_endpoint"`
	Keys      SubscriptionKeys `json:"keys" gorm:"embedded"`
	UserAgent *string          `json:"user_agent,omitempty" gorm:"size:512"`
	CreatedAt time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"not null"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// RegisterSubscriptionRequest is the body of a device registration.
type RegisterSubscriptionRequest struct {
	Endpoint  string           `json:"endpoint" validate:"required,url,max=2048"`
	Keys      SubscriptionKeys `json:"keys"`
	UserAgent string           `json:"user_agent,omitempty" validate:"omitempty,max=512"`
}

// UnregisterSubscriptionRequest is the body of a device unregistration.
type UnregisterSubscriptionRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}
