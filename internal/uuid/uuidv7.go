// Package uuid generates record identifiers. Ids are time-ordered UUIDv7 so a
// fresh local record sorts after everything already in the store.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 string. If the random source fails, it falls back
// to a UUIDv4 so record creation never fails on id generation.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// NewTransferRef generates the reference shared by the two legs of a transfer.
func NewTransferRef() string {
	return "trf_" + New()
}

// Parse validates and normalizes a UUID string
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}

// Version returns the UUID version of s, or 0 if s is not a UUID.
func Version(s string) int {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return 0
	}
	return int(parsed.Version())
}
