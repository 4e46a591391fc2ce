package models

import "time"

// RefreshToken stores the SHA-256 hash of an issued refresh token. Rotated on
// use; expired and revoked rows are purged by a daily scheduler.
type RefreshToken struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            string     `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenHash         string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt         time.Time  `gorm:"index" json:"expires_at"`
	RevokedAt         *time.Time `json:"revoked_at"`
	ReplacedByTokenID *uint      `json:"replaced_by_token_id"`
	CreatedByIP       string     `gorm:"size:50" json:"created_by_ip"`
	UserAgent         string     `gorm:"size:500" json:"user_agent"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
