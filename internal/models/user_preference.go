package models

import "gorm.io/datatypes"

type UserPreference struct {
	ID                   uint64                      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               string                      `gorm:"type:varchar(100);not null;uniqueIndex" json:"userId"`
	TelegramChatID       *string                     `gorm:"type:varchar(64)" json:"telegramChatId"`
	TelegramUsername     *string                     `gorm:"type:varchar(100)" json:"telegramUsername"`
	RiskTolerance        string                      `gorm:"type:varchar(30);not null;default:'moderate'" json:"riskTolerance"`
	PreferredChains      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"preferredChains"`
	PreferredTokens      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"preferredTokens"`
	NotificationsEnabled bool                        `gorm:"not null" json:"notificationsEnabled"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}

// DefaultUserPreference is what a user sees before saving anything.
func DefaultUserPreference(userID string) UserPreference {
	return UserPreference{
		UserID:               userID,
		RiskTolerance:        "moderate",
		PreferredChains:      datatypes.JSONSlice[string]{"solana"},
		PreferredTokens:      datatypes.JSONSlice[string]{},
		NotificationsEnabled: true,
	}
}
