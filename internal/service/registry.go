package service

import (
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/internal/storage"
	"bitwise74/dropgate/pkg/security"
	"bitwise74/dropgate/pkg/util"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMimeType = "application/octet-stream"

// NewFile is everything needed to store an upload
type NewFile struct {
	Name       string
	MimeType   string
	Size       int64
	Body       io.Reader
	IsPrivate  bool
	Passcode   string
	ExpiryDays int
}

// Patch holds the fields an admin may change. Nil means unchanged.
type Patch struct {
	IsPrivate *bool `json:"isPrivate"`
}

type ListOptions struct {
	Page  int
	Limit int
	Sort  string
}

// Registry owns the lifecycle of file records and their objects
type Registry struct {
	db    *gorm.DB
	store storage.ObjectStore
	slugs *SlugAllocator
	now   func() time.Time
	newID func() string
}

func NewRegistry(db *gorm.DB, store storage.ObjectStore, slugs SlugConfig, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	r := &Registry{
		db:    db,
		store: store,
		now:   now,
		newID: util.NewFileID,
	}
	r.slugs = NewSlugAllocator(slugs, r.SlugTaken)

	return r
}

// SlugTaken reports whether slug belongs to a stored record, live or
// expired, or to one that was deleted.
func (r *Registry) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64

	err := r.db.WithContext(ctx).
		Model(model.FileRecord{}).
		Where("slug = ?", slug).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	if n > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).
		Model(model.RetiredSlug{}).
		Where("slug = ?", slug).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	return n > 0, nil
}

// Create stores the object and then inserts the record, in that order. If
// the insert fails the object stays behind and is only logged.
func (r *Registry) Create(ctx context.Context, nf NewFile) (*model.FileRecord, error) {
	if nf.Name == "" {
		return nil, fmt.Errorf("%w, no file name provided", ErrValidation)
	}

	if nf.Body == nil {
		return nil, fmt.Errorf("%w, no file content provided", ErrValidation)
	}

	var passcodeHash *string
	if nf.IsPrivate {
		if nf.Passcode == "" {
			return nil, fmt.Errorf("%w, private files require a passcode", ErrValidation)
		}

		h := security.HashPasscode(nf.Passcode)
		passcodeHash = &h
	}

	mimeType := nf.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	rec := &model.FileRecord{
		ID:           r.newID(),
		OriginalName: nf.Name,
		MimeType:     mimeType,
		Size:         nf.Size,
		UploadedAt:   r.now().UnixMilli(),
		PasscodeHash: passcodeHash,
		IsPrivate:    nf.IsPrivate,
	}

	if nf.ExpiryDays > 0 {
		exp := rec.UploadedAt + int64(nf.ExpiryDays)*model.DayMillis
		rec.ExpiresAt = &exp
	}

	slug, err := r.slugs.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	rec.Slug = slug

	key := DeriveKey(rec.ID, rec.OriginalName)
	if err := r.store.Put(ctx, key, nf.Body, rec.Size, rec.MimeType); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	err = r.insert(ctx, rec)
	if err != nil {
		orphansTotal.WithLabelValues("create").Inc()
		zap.L().Warn("Record insert failed after object was stored",
			zap.Bool("orphan", true),
			zap.String("key", key),
			zap.String("id", rec.ID),
			zap.Error(err),
		)

		return nil, err
	}

	visibility := "public"
	if rec.IsPrivate {
		visibility = "private"
	}
	uploadsTotal.WithLabelValues(visibility).Inc()

	return rec, nil
}

// insert writes rec, drawing a new slug whenever another upload claimed the
// same one between the existence check and the insert.
func (r *Registry) insert(ctx context.Context, rec *model.FileRecord) error {
	for attempt := 1; ; attempt++ {
		err := r.db.WithContext(ctx).Create(rec).Error
		if err == nil {
			return nil
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w, failed to insert file record, %w", ErrStorageUnavailable, err)
		}

		if attempt >= r.slugs.MaxAttempts() {
			return fmt.Errorf("%w, slug conflicts on every insert", ErrSlugExhausted)
		}

		zap.L().Debug("Slug claimed concurrently, drawing a new one", zap.String("slug", rec.Slug))

		slug, err := r.slugs.Allocate(ctx)
		if err != nil {
			return err
		}
		rec.Slug = slug
	}
}

// Lookup finds a record by its public slug. Expired records are returned
// too, deciding what to do with them is up to the access gate.
func (r *Registry) Lookup(ctx context.Context, slug string) (*model.FileRecord, error) {
	return r.first(ctx, "slug = ?", slug)
}

// Get finds a record by its internal ID.
func (r *Registry) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Registry) first(ctx context.Context, query string, arg string) (*model.FileRecord, error) {
	var rec model.FileRecord

	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	return &rec, nil
}

// AZ = A - Z as in alphabetic same for ZA
var listOrders = map[string]string{
	"newest":    "uploaded_at desc",
	"oldest":    "uploaded_at asc",
	"az":        "original_name asc",
	"za":        "original_name desc",
	"size-asc":  "size asc",
	"size-desc": "size desc",
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 250
)

// List returns record metadata for the admin panel.
func (r *Registry) List(ctx context.Context, o ListOptions) ([]model.FileRecord, error) {
	if o.Sort == "" {
		o.Sort = "newest"
	}

	order, ok := listOrders[o.Sort]
	if !ok {
		return nil, fmt.Errorf("%w, invalid sorting option", ErrValidation)
	}

	if o.Page < 0 {
		return nil, fmt.Errorf("%w, page can't be negative", ErrValidation)
	}

	if o.Limit == 0 {
		o.Limit = DefaultListLimit
	}

	if o.Limit < 0 || o.Limit > MaxListLimit {
		return nil, fmt.Errorf("%w, limit must be between 1 and %d", ErrValidation, MaxListLimit)
	}

	entries := []model.FileRecord{}

	err := r.db.WithContext(ctx).
		Order(order).
		Order("id").
		Offset(o.Page * o.Limit).
		Limit(o.Limit).
		Find(&entries).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	return entries, nil
}

// Update applies p to the record. Only the privacy flag can change;
// passcode and expiry are fixed at upload.
func (r *Registry) Update(ctx context.Context, id string, p Patch) (*model.FileRecord, error) {
	if p.IsPrivate == nil {
		return nil, fmt.Errorf("%w, no changes provided", ErrValidation)
	}

	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if *p.IsPrivate && rec.PasscodeHash == nil {
		return nil, fmt.Errorf("%w, file has no passcode and can't be made private", ErrValidation)
	}

	err = r.db.WithContext(ctx).
		Model(rec).
		Update("is_private", *p.IsPrivate).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	rec.IsPrivate = *p.IsPrivate

	return rec, nil
}

// Delete removes the object and then the record. A failed object delete is
// logged and the record is removed anyway. The slug is retired so it's never
// reissued.
func (r *Registry) Delete(ctx context.Context, id string) error {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	key := DeriveKey(rec.ID, rec.OriginalName)
	if err := r.store.Delete(ctx, key); err != nil {
		orphansTotal.WithLabelValues("delete").Inc()
		zap.L().Warn("Failed to delete object, removing record anyway",
			zap.Bool("orphan", true),
			zap.String("key", key),
			zap.String("id", rec.ID),
			zap.Error(err),
		)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", rec.ID).Delete(model.FileRecord{}).Error; err != nil {
			return err
		}

		return tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.RetiredSlug{Slug: rec.Slug, RetiredAt: r.now().UnixMilli()}).
			Error
	})
	if err != nil {
		return fmt.Errorf("%w, failed to delete file record, %w", ErrStorageUnavailable, err)
	}

	return nil
}

// Open returns the content of rec. A record without an object is reported
// as ErrNotFound.
func (r *Registry) Open(ctx context.Context, rec *model.FileRecord) (io.ReadCloser, error) {
	key := DeriveKey(rec.ID, rec.OriginalName)

	rc, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectMissing) {
			orphansTotal.WithLabelValues("open").Inc()
			zap.L().Warn("File record has no object", zap.Bool("orphan", true), zap.String("key", key), zap.String("id", rec.ID))

			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	return rc, nil
}

// Expired returns up to limit records whose expiry is before now.
func (r *Registry) Expired(ctx context.Context, now time.Time, limit int) ([]model.FileRecord, error) {
	var entries []model.FileRecord

	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now.UnixMilli()).
		Order("expires_at asc").
		Limit(limit).
		Find(&entries).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrStorageUnavailable, err)
	}

	return entries, nil
}
