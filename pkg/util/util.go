// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"os"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const requestIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IsRunningInDocker checks for the marker file docker creates and falls back
// to the cgroup of PID 1 for runtimes that don't create it
func IsRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	b, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}

	return strings.Contains(string(b), "docker")
}

// NewFileID returns a random (v4) UUID. It reads from crypto/rand.
func NewFileID() string {
	return uuid.NewString()
}

// NewRequestID returns a short random ID used to correlate logs with responses
func NewRequestID() string {
	id, err := gonanoid.Generate(requestIDAlphabet, 12)
	if err != nil {
		return uuid.NewString()
	}

	return id
}
