// Package model defines database models
package model

// DayMillis is one day in milliseconds. Expiry is stored as a unix
// millisecond timestamp.
const DayMillis int64 = 86_400_000

type FileRecord struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	Slug         string  `gorm:"uniqueIndex;size:32;not null" json:"slug"`
	OriginalName string  `gorm:"not null" json:"filename"`
	MimeType     string  `gorm:"not null" json:"mimeType"`
	Size         int64   `gorm:"not null" json:"size"`
	UploadedAt   int64   `gorm:"not null;index" json:"uploadedAt"` // All are unix millisecond timestamps
	ExpiresAt    *int64  `gorm:"index" json:"expiresAt"`
	PasscodeHash *string `json:"-"`
	IsPrivate    bool    `gorm:"not null;default:false" json:"isPrivate"`
}

// IsExpired reports whether the record was dead at now (unix millis).
func (f *FileRecord) IsExpired(now int64) bool {
	return f.ExpiresAt != nil && now > *f.ExpiresAt
}

// RetiredSlug keeps slugs of deleted records so they are never handed out again
type RetiredSlug struct {
	Slug      string `gorm:"primaryKey;size:32"`
	RetiredAt int64  `gorm:"not null"`
}
