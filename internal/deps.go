package internal

import (
	"bitwise74/dropgate/internal/service"
	"bitwise74/dropgate/internal/storage"
	"bitwise74/dropgate/pkg/security"
	"time"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Store    storage.ObjectStore
	Registry *service.Registry
	Admins   *service.Admins
	AdGate   *service.AdGate
	Tokens   *security.TokenIssuer
	Argon    *security.ArgonHash
	// Now is the clock every handler reads, tests replace it
	Now           func() time.Time
	MaxUploadSize int64
}
