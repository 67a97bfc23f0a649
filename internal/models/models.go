package models

import (
	"time"
)

type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Email              string    `gorm:"uniqueIndex" json:"email"`
	Password           string    `json:"-"`
	Role               string    `json:"role"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Provider is a stored object-storage target: AWS proper or any
// S3-compatible endpoint (minio, mcg, generic).
type Provider struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // aws|minio|mcg|generic
	Endpoint  string    `json:"endpoint"`
	AccessKey string    `json:"accessKey"`
	SecretKey string    `json:"secretKey"`
	Region    string    `json:"region"`
	UseSSL    bool      `json:"useSSL"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
