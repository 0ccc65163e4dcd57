package services

import "github.com/google/uuid"

// newID returns a time-ordered identifier for new rows.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
