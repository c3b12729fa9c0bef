package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateMsgID returns a fresh presentation-layer message handle.
func GenerateMsgID() string {
	return "msg-" + uuid.NewString()
}
