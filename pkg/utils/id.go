package utils

import "github.com/google/uuid"

// NewSessionID returns an id for a conversation session.
func NewSessionID() string {
	return "conv_" + uuid.NewString()
}

// NewRunID returns an id for one sweep run.
func NewRunID() string {
	return "sweep_" + uuid.NewString()
}
