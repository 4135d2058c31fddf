// Package utils holds small helpers shared across layers.
package utils

import (
	"log"

	"github.com/google/uuid"
)

// GenerateID returns a new UUID v4 string. Every entity id in the system
// (work orders, steps, approval log rows) comes from here.
func GenerateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		log.Printf("Failed to generate UUID: %v", err)
		return ""
	}
	return id.String()
}

// IsValidUUID reports whether the string parses as a UUID
func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}
