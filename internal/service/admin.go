package service

import (
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/pkg/util"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PasswordHasher hashes admin passwords and checks them against a hash
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Admins looks up and verifies admin principals
type Admins struct {
	db    *gorm.DB
	argon PasswordHasher
	now   func() time.Time
	// Checked against when the username is unknown so both failures cost
	// the same
	dummyHash string
}

func NewAdmins(db *gorm.DB, argon PasswordHasher, now func() time.Time) *Admins {
	if now == nil {
		now = time.Now
	}

	dummy, err := argon.Hash(util.NewFileID())
	if err != nil {
		zap.L().Warn("Failed to prepare dummy password hash", zap.Error(err))
	}

	return &Admins{db: db, argon: argon, now: now, dummyHash: dummy}
}

// EnsureAdmin creates an admin principal called username unless one with
// that name already exists. An existing principal is never modified.
func (a *Admins) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w, admin username and password are required", ErrValidation)
	}

	var n int64
	err := a.db.WithContext(ctx).
		Model(model.AdminPrincipal{}).
		Where("username = ?", username).
		Count(&n).
		Error
	if err != nil {
		return fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	if n > 0 {
		zap.L().Debug("Admin principal already exists", zap.String("username", username))
		return nil
	}

	hash, err := a.argon.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password, %w", err)
	}

	err = a.db.WithContext(ctx).Create(&model.AdminPrincipal{
		ID:           util.NewFileID(),
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    a.now().UnixMilli(),
	}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w, failed to create admin principal, %w", ErrStorageUnavailable, err)
	}

	zap.L().Info("Created admin principal", zap.String("username", username))

	return nil
}

// Authenticate checks username and password. An unknown user and a wrong
// password both return ErrUnauthorized after the same hashing work.
func (a *Admins) Authenticate(ctx context.Context, username, password string) (*model.AdminPrincipal, error) {
	var p model.AdminPrincipal

	err := a.db.WithContext(ctx).
		Where("username = ?", username).
		First(&p).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.argon.Verify(password, a.dummyHash)
			return nil, ErrUnauthorized
		}

		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	ok, err := a.argon.Verify(password, p.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrUnauthorized
	}

	return &p, nil
}
