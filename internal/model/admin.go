package model

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

type AdminPrincipal struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"` // PHC encoded argon2id hash
	Role         string `gorm:"not null;default:viewer" json:"role"`
	CreatedAt    int64  `gorm:"not null" json:"createdAt"`
}
