package models

import "time"

// User is an identity-provider account plus its calendar integration state.
// The primary key is the opaque id issued by the identity provider.
type User struct {
	ID                    string     `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Email                 string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName             *string    `gorm:"type:varchar(255)" json:"firstName"`
	LastName              *string    `gorm:"type:varchar(255)" json:"lastName"`
	ProfileImageURL       *string    `gorm:"type:text" json:"profileImageUrl"`
	GoogleCalendarEnabled bool       `gorm:"not null;default:false" json:"googleCalendarEnabled"`
	GoogleAccessToken     *string    `gorm:"type:text" json:"-"`
	GoogleRefreshToken    *string    `gorm:"type:text" json:"-"`
	GoogleTokenExpiry     *time.Time `json:"googleTokenExpiry,omitempty"`
	CreatedAt             time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// CalendarTokens are the OAuth credentials persisted for calendar sync.
type CalendarTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

// HasCalendarTokens reports whether the user completed the calendar OAuth flow.
func (u *User) HasCalendarTokens() bool {
	return u.GoogleCalendarEnabled && u.GoogleAccessToken != nil && *u.GoogleAccessToken != ""
}
