package service

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultSlugAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	DefaultSlugLength      = 8
	DefaultSlugMaxAttempts = 20
)

type SlugConfig struct {
	Alphabet    string
	Length      int
	MaxAttempts int
}

func (c SlugConfig) withDefaults() SlugConfig {
	if c.Alphabet == "" {
		c.Alphabet = DefaultSlugAlphabet
	}
	if c.Length <= 0 {
		c.Length = DefaultSlugLength
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultSlugMaxAttempts
	}

	return c
}

// SlugExistsFunc reports whether a slug was ever handed out
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// SlugAllocator draws random slugs until it finds one that isn't taken.
// The check isn't atomic with the later insert; the unique index on the
// slug column is what finally guarantees uniqueness.
type SlugAllocator struct {
	cfg    SlugConfig
	exists SlugExistsFunc
}

func NewSlugAllocator(cfg SlugConfig, exists SlugExistsFunc) *SlugAllocator {
	return &SlugAllocator{
		cfg:    cfg.withDefaults(),
		exists: exists,
	}
}

func (a *SlugAllocator) MaxAttempts() int {
	return a.cfg.MaxAttempts
}

// Allocate returns a slug that was free at the time of the check.
func (a *SlugAllocator) Allocate(ctx context.Context) (string, error) {
	for range a.cfg.MaxAttempts {
		slug, err := gonanoid.Generate(a.cfg.Alphabet, a.cfg.Length)
		if err != nil {
			return "", fmt.Errorf("failed to generate slug, %w", err)
		}

		taken, err := a.exists(ctx, slug)
		if err != nil {
			if errors.Is(err, ErrStorageUnavailable) {
				return "", err
			}

			return "", fmt.Errorf("%w, failed to check slug, %w", ErrStorageUnavailable, err)
		}

		if !taken {
			return slug, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrSlugExhausted, a.cfg.MaxAttempts)
}
