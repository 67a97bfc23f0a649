package models

import "time"

// Site statuses.
const (
	SiteStatusPending     = "pending"
	SiteStatusProvisioned = "provisioned"
	SiteStatusFailed      = "failed"
)

// Site is a website bucket under management. Unique per (ProviderID, Bucket).
type Site struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProviderID uint      `gorm:"index;not null" json:"providerId"`
	Bucket     string    `gorm:"not null" json:"bucket"`
	Region     string    `json:"region"`
	Status     string    `json:"status"` // pending|provisioned|failed
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Run records one provisioning attempt for a site. The step rows say how
// far the pipeline got, so a failed run never hides a half-configured
// bucket: everything attempted before the failure is on record.
type Run struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SiteID     uint      `gorm:"index;not null" json:"siteId"`
	Status     string    `json:"status"` // succeeded|failed
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Started    time.Time `json:"started"`
	Ended      time.Time `json:"ended"`
	DurationNs int64     `json:"durationNs"`
}

type RunStep struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	RunID      uint   `gorm:"index" json:"runId"`
	Seq        int    `json:"seq"`
	Name       string `json:"name"`
	Status     string `json:"status"` // ok|failed
	Error      string `json:"error,omitempty"`
	DurationNs int64  `json:"durationNs"`
}
