package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID generates a new UUID v4.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateRequestID generates a request ID (UUID v4).
func GenerateRequestID() string {
	return GenerateUUID()
}

// GenerateJobID generates a batch job ID. Job IDs are time-ordered (UUID v7)
// so blob prefixes list in submission order.
func GenerateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return GenerateUUID()
	}
	return id.String()
}

// IsValidUUID checks if a string is a valid UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
