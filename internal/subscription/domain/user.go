package domain

import "time"

// User is the part of a user record the subscription flows read
type User struct {
	ID       string `json:"id,omitempty" gorm:"primaryKey"`
	Role     string `json:"role"`
	FCMToken string `json:"fcm_token,omitempty" gorm:"column:fcm_token"`
}

// Subscription records which token currently holds a user's topic
// memberships
type Subscription struct {
	UserID    string    `json:"-" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"not null"`
	Topics    []string  `json:"topics" gorm:"serializer:json"`
	UpdatedAt time.Time `json:"updated_at"`
}
