package domain

import "github.com/google/uuid"

// NewID allocates a unique, creation-ordered identifier for stored records.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
