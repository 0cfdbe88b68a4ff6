package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is issued at most once per enrollment; the issuer enforces this
// in addition to the unique index.
type Certificate struct {
	gorm.Model
	EnrollmentID    uint   `gorm:"not null;uniqueIndex"`
	CertificateCode string `gorm:"not null;uniqueIndex"`
	FileURL         string
	IssuedAt        time.Time
}
