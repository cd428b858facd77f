package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrNotEntitled        = errors.New("user is not entitled")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNotificationFailed = errors.New("notification failed")
	ErrSelfTransfer       = errors.New("cannot transfer entitlement to the same user")

	ErrSettingsNotFound   = errors.New("settings not found")
	ErrSessionNotFound    = errors.New("conversation session not found")
	ErrInvalidReplacement = errors.New("invalid replacement format")
	ErrWordInDeleteList   = errors.New("word is in the delete list")
	ErrInvalidChat        = errors.New("invalid chat reference")
	ErrBotNotAdmin        = errors.New("bot is not an administrator of the chat")
	ErrPhotoRequired      = errors.New("photo required")
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnknownAction      = errors.New("unknown action")
)

// DeleteListConflictError rejects a replacement for a word the user asked
// to delete.
type DeleteListConflictError struct {
	Word string
}

func (e *DeleteListConflictError) Error() string {
	return fmt.Sprintf("%s: %q", ErrWordInDeleteList, e.Word)
}

func (e *DeleteListConflictError) Is(target error) bool {
	return target == ErrWordInDeleteList
}
