package model

import "time"

// PushSubscription holds the information for a KDS device's push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Displays []SubscriptionDisplay `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionDisplay maps a subscription to a display whose link changes it follows.
type SubscriptionDisplay struct {
	Endpoint  string `gorm:"primaryKey;size:512"`
	DisplayID int64  `gorm:"primaryKey;index"`
}

// TableName pins the mapping table name.
func (SubscriptionDisplay) TableName() string {
	return "subscription_displays"
}
