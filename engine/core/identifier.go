package core

import "github.com/google/uuid"

// NewResourceID returns a unique identifier for a GPU resource. Used for
// debug labels and cache bookkeeping, never for ordering.
func NewResourceID() string {
	return uuid.New().String()
}
