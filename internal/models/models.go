package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents a registered account
type User struct {
	BaseModel
	Username     string `json:"username" gorm:"not null;unique"`
	Email        string `json:"email" gorm:"not null;unique"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"-" gorm:"not null"`
}

// RefreshToken records an issued refresh token by its JWT ID so it can be
// checked on refresh and revoked server-side. Expired rows are purged by a
// background job.
type RefreshToken struct {
	BaseModel
	JTI       string    `json:"jti" gorm:"not null;uniqueIndex;type:varchar(26)"`
	UserID    string    `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// Product is a catalog entry served by the store endpoints
type Product struct {
	BaseModel
	Title       string  `json:"title" gorm:"not null"`
	Description string  `json:"description" gorm:"type:text"`
	UnitPrice   float64 `json:"unit_price" gorm:"not null"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Product{},
	)
}
