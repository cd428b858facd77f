package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxRenameTagLength = 64
	MaxCaptionLength   = 1024
	MaxWordLength      = 64
	MaxDeleteWords     = 100
	MinSessionLength   = 100
	MaxSessionLength   = 1024
)

var (
	// SessionStringRegex matches URL-safe base64 session strings.
	SessionStringRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+=*$`)

	// FileNameUnsafe matches characters that are not allowed in file names.
	FileNameUnsafe = regexp.MustCompile(`[/\\\x00]`)
)

// ValidateRenameTag validates the tag appended to renamed files.
func ValidateRenameTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("rename tag is required")
	}
	if err := ValidateStringLength(tag, 1, MaxRenameTagLength, "rename tag"); err != nil {
		return err
	}
	if FileNameUnsafe.MatchString(tag) {
		return fmt.Errorf("rename tag must not contain path separators")
	}
	return nil
}

// ValidateCaption validates a caption template.
func ValidateCaption(caption string) error {
	if err := ValidateNonEmptyString(caption, "caption"); err != nil {
		return err
	}
	return ValidateStringLength(caption, 1, MaxCaptionLength, "caption")
}

// ValidateDeleteWords validates the words a user wants stripped.
func ValidateDeleteWords(words []string) error {
	if len(words) == 0 {
		return fmt.Errorf("at least one word is required")
	}
	if len(words) > MaxDeleteWords {
		return fmt.Errorf("too many words (max %d)", MaxDeleteWords)
	}
	for _, w := range words {
		if err := ValidateStringLength(w, 1, MaxWordLength, "word"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSessionString validates a client session string.
func ValidateSessionString(session string) error {
	session = strings.TrimSpace(session)
	if session == "" {
		return fmt.Errorf("session string is required")
	}
	if len(session) < MinSessionLength {
		return fmt.Errorf("session string is too short (min %d characters)", MinSessionLength)
	}
	if len(session) > MaxSessionLength {
		return fmt.Errorf("session string is too long (max %d characters)", MaxSessionLength)
	}
	if !SessionStringRegex.MatchString(session) {
		return fmt.Errorf("session string contains invalid characters")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes.
func ValidateStringLength(s string, min, max int, fieldName string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
